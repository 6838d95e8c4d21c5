package session

import (
	"time"
)

// Role identifies which side of a pairing a connection occupies.
type Role string

const (
	RoleDesktop Role = "desktop"
	RolePhone   Role = "phone"
)

func (r Role) Valid() bool {
	return r == RoleDesktop || r == RolePhone
}

// Opposite returns the paired role.
func (r Role) Opposite() Role {
	if r == RoleDesktop {
		return RolePhone
	}
	return RoleDesktop
}

// PeerConn is the write side of a bound connection. The relay only ever
// delivers envelopes through it; reading stays with the websocket handler.
type PeerConn interface {
	// RefID identifies the underlying connection so a rebind of the same
	// role can be told apart from a reconnect of the same socket.
	RefID() string
	WriteEnvelope(v interface{}) error
}

// Session is a time-bounded pairing context between one desktop and at most
// one phone. DesktopConn and PhoneConn are process-local handles and are not
// serialized; the rest of the record is.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	DesktopConn PeerConn `json:"-"`
	PhoneConn   PeerConn `json:"-"`

	PhoneConnected bool `json:"is_phone_connected"`

	// Last-known desktop UI state, pushed by the desktop and used to
	// hydrate a phone that joins (or rejoins) late.
	CurrentRoute string `json:"current_route"`
	MenuOpen     bool   `json:"menu_open"`
}

func NewSession(id string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Snapshot is the serializable view of a session handed to clients in
// create/join responses.
type Snapshot struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	PhoneConnected bool      `json:"is_phone_connected"`
	CurrentRoute   string    `json:"current_route"`
	MenuOpen       bool      `json:"menu_open"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		PhoneConnected: s.PhoneConnected,
		CurrentRoute:   s.CurrentRoute,
		MenuOpen:       s.MenuOpen,
	}
}
