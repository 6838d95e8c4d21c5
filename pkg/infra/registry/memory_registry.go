package registry

import (
	"sync"
	"time"

	"github.com/remotedeck/remotedeck/pkg/domain/session"
)

const maxIDCollisionRetries = 5

// MemoryRegistry is the default single-process session store: a mutex-guarded
// map. The relay serializes all session mutation on top of this, so the lock
// here only protects map integrity.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	ttl      time.Duration
	idGen    *session.IDGenerator
}

func NewMemoryRegistry(ttl time.Duration, idGen *session.IDGenerator) *MemoryRegistry {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if idGen == nil {
		idGen = session.NewIDGenerator(session.DefaultIDLength)
	}
	return &MemoryRegistry{
		sessions: make(map[string]*session.Session),
		ttl:      ttl,
		idGen:    idGen,
	}
}

func (r *MemoryRegistry) Create() (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.idGen.Generate()
	for i := 0; i < maxIDCollisionRetries; i++ {
		if _, exists := r.sessions[id]; !exists {
			break
		}
		id = r.idGen.Generate()
	}

	s := session.NewSession(id, r.ttl)
	r.sessions[id] = s
	return s, nil
}

func (r *MemoryRegistry) Get(id string) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

func (r *MemoryRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *MemoryRegistry) Update(s *session.Session) {
	// Sessions are held by pointer; nothing to write back.
}

func (r *MemoryRegistry) SweepExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
