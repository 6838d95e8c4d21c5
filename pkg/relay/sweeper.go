package relay

import (
	"context"
	"time"

	"github.com/remotedeck/remotedeck/pkg/domain/session"
	"github.com/remotedeck/remotedeck/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

// Sweeper enforces the session TTL with a periodic scan instead of a timer
// per session. An expired session may survive up to one interval past its
// nominal expiry, which is an accepted tolerance for this feature.
type Sweeper struct {
	registry session.Registry
	logger   *logrus.Logger
	interval time.Duration
}

func NewSweeper(registry session.Registry, logger *logrus.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Sweeper{
		registry: registry,
		logger:   logger,
		interval: interval,
	}
}

// Run blocks until ctx is canceled, sweeping at every tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Sweeper) tick() {
	removed := s.registry.SweepExpired()
	if removed > 0 {
		prometheus.SessionsSweptTotal.Add(float64(removed))
		prometheus.SessionsActive.Set(float64(s.registry.Len()))
		s.logger.WithField("removed", removed).Info("swept expired sessions")
	}
}
