package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Real-Dev-Squad/website-backend/internal/service"
)

func TestCleanupRemovesStaleInvites(t *testing.T) {
	db := new(MockDatabaseStorage)
	db.On("DeleteDiscordInvitesBefore", mock.Anything, mock.MatchedBy(func(before time.Time) bool {
		age := time.Since(before)
		return age >= service.InviteMaxAge && age < service.InviteMaxAge+time.Minute
	})).Return(int64(2), nil)

	svc := service.NewCleanupService(db, testLogger)
	svc.RunOnce(context.Background())
	db.AssertExpectations(t)
}

func TestCleanupStopsWithContext(t *testing.T) {
	db := new(MockDatabaseStorage)
	db.On("DeleteDiscordInvitesBefore", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	svc := service.NewCleanupService(db, testLogger)
	svc.Start(ctx, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	cancel()
	svc.Stop()
}
