package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/remotedeck/remotedeck/pkg/domain/session"
	"github.com/remotedeck/remotedeck/pkg/infra/cache"
	"github.com/sirupsen/logrus"
)

const SessionKeyPattern = "remotedeck:session:%s"

// RedisRegistry keeps live sessions in a process-local map (connection
// handles cannot leave the process) and writes the serializable record
// through to redis so a horizontally scaled deployment can tell whether an
// id exists elsewhere. Redis key TTL mirrors the session TTL, so expired
// records evict server-side; SweepExpired only cleans the local overlay.
type RedisRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	client   *cache.Client
	logger   *logrus.Logger
	ttl      time.Duration
	idGen    *session.IDGenerator
}

func NewRedisRegistry(
	client *cache.Client,
	logger *logrus.Logger,
	ttl time.Duration,
	idGen *session.IDGenerator,
) *RedisRegistry {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if idGen == nil {
		idGen = session.NewIDGenerator(session.DefaultIDLength)
	}
	return &RedisRegistry{
		sessions: make(map[string]*session.Session),
		client:   client,
		logger:   logger,
		ttl:      ttl,
		idGen:    idGen,
	}
}

func (r *RedisRegistry) Create() (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx := context.Background()

	id := r.idGen.Generate()
	for i := 0; i < maxIDCollisionRetries; i++ {
		if _, exists := r.sessions[id]; exists {
			id = r.idGen.Generate()
			continue
		}
		if _, err := r.client.Get(ctx, r.key(id)); err == nil {
			id = r.idGen.Generate()
			continue
		}
		break
	}

	s := session.NewSession(id, r.ttl)
	r.sessions[id] = s

	if err := r.persist(ctx, s); err != nil {
		delete(r.sessions, id)
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return s, nil
}

func (r *RedisRegistry) Get(id string) (*session.Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	// The record may have been created by another instance. It is
	// returned without connection handles; the relay treats a bind
	// against it like a fresh claim of the role.
	raw, err := r.client.Get(context.Background(), r.key(id))
	if err != nil {
		return nil, session.ErrSessionNotFound
	}

	var remote session.Session
	if err := json.Unmarshal([]byte(raw), &remote); err != nil {
		return nil, session.ErrSessionNotFound
	}

	r.mu.Lock()
	r.sessions[id] = &remote
	r.mu.Unlock()
	return &remote, nil
}

func (r *RedisRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	if err := r.client.Delete(context.Background(), r.key(id)); err != nil {
		r.logger.WithError(err).WithField("session_id", id).Warn("failed to delete session record from redis")
	}
}

func (r *RedisRegistry) Update(s *session.Session) {
	if err := r.persist(context.Background(), s); err != nil {
		r.logger.WithError(err).WithField("session_id", s.ID).Warn("failed to write session record to redis")
	}
}

func (r *RedisRegistry) SweepExpired() int {
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

func (r *RedisRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *RedisRegistry) persist(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		// Expired between mutation and write-back; let redis drop it
		// immediately rather than storing a dead record.
		return r.client.Delete(ctx, r.key(s.ID))
	}
	return r.client.Set(ctx, r.key(s.ID), string(data), ttl)
}

func (r *RedisRegistry) key(id string) string {
	return fmt.Sprintf(SessionKeyPattern, id)
}
