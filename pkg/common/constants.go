package common

import "time"

const (
	// DefaultSessionTTL matches the product behavior: a QR code is good
	// for fifteen minutes and activity does not extend it.
	DefaultSessionTTL = 15 * time.Minute

	// DefaultSweepInterval bounds how long an expired session can outlive
	// its nominal TTL before removal.
	DefaultSweepInterval = 60 * time.Second

	// JoinPathPrefix is the path the phone lands on after scanning.
	JoinPathPrefix = "/remote"
)
