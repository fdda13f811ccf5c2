package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-service/internal/repository"
)

// SessionSweeper periodically removes expired refresh records. Lookups
// already treat expired rows as invalid, so the sweeper only bounds table
// growth on long-lived deployments.
type SessionSweeper struct {
	sessions repository.SessionRepository
	logger   *zap.Logger
	interval time.Duration
}

// NewSessionSweeper builds the sweeper.
func NewSessionSweeper(sessions repository.SessionRepository, logger *zap.Logger, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{sessions: sessions, logger: logger, interval: interval}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.sessions.DeleteExpired(ctx)
			if err != nil {
				s.logger.Error("session sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("expired sessions removed", zap.Int64("count", removed))
			}
		}
	}
}
