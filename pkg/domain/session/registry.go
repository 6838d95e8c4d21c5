package session

// Registry owns the session map. All access goes through it; no other
// component touches sessions directly. Implementations must be safe for
// concurrent use.
type Registry interface {
	// Create allocates a fresh session with a newly generated id.
	Create() (*Session, error)
	// Get returns ErrSessionNotFound for unknown ids. It does not check
	// expiry; the relay does that so expired-but-unswept records are
	// rejected consistently.
	Get(id string) (*Session, error)
	// Remove is idempotent; removing an unknown id is not an error.
	Remove(id string)
	// Update writes back a mutated session record. In-memory stores hold
	// sessions by pointer and treat this as a no-op; shared stores persist
	// the serializable fields.
	Update(s *Session)
	// SweepExpired removes every session whose ExpiresAt has passed and
	// returns how many were removed.
	SweepExpired() int
	// Len reports the number of live sessions, for metrics.
	Len() int
}
