package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically deletes expired token rows. Expired tokens are
// already rejected at resolution time, so a failed sweep is only logged
// and retried at the next tick.
type Sweeper struct {
	auth     AuthService
	interval time.Duration
	logger   *logrus.Logger
	cron     *cron.Cron
}

func NewSweeper(auth AuthService, interval time.Duration, logger *logrus.Logger) *Sweeper {
	return &Sweeper{
		auth:     auth,
		interval: interval,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the sweep and runs it until Stop is called. The first
// sweep happens one interval after Start, not immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// RunOnce executes a single sweep. Safe to call concurrently with token
// issuance and revocation; the delete relies only on the store's atomicity.
func (s *Sweeper) RunOnce(ctx context.Context) {
	deleted, err := s.auth.PurgeExpired(ctx)
	if err != nil {
		s.logger.Warnf("token sweep: %v", err)
		return
	}
	if deleted > 0 {
		s.logger.Infof("token sweep: deleted %d expired tokens", deleted)
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
