package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/internal/storage"
)

// InviteMaxAge is how long a generated Discord invite is handed out again
// before a fresh one is created.
const InviteMaxAge = 7 * 24 * time.Hour

// CleanupService periodically drops stale Discord invites.
type CleanupService struct {
	db            storage.DatabaseStorage
	logger        *logrus.Logger
	cleanupTicker *time.Ticker
	done          chan struct{}
}

func NewCleanupService(db storage.DatabaseStorage, logger *logrus.Logger) *CleanupService {
	return &CleanupService{
		db:     db,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (s *CleanupService) Start(ctx context.Context, interval time.Duration) {
	s.cleanupTicker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-s.cleanupTicker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				s.cleanupTicker.Stop()
				close(s.done)
				return
			}
		}
	}()
}

func (s *CleanupService) RunOnce(ctx context.Context) {
	n, err := s.db.DeleteDiscordInvitesBefore(ctx, time.Now().Add(-InviteMaxAge))
	if err != nil {
		s.logger.Errorf("Failed to cleanup stale discord invites: %v", err)
		return
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("Removed stale discord invites")
	}
}

// Stop blocks until the cleanup loop has exited. Start must have been called
// with a context that is cancelled.
func (s *CleanupService) Stop() {
	if s.cleanupTicker == nil {
		return
	}
	<-s.done
}
