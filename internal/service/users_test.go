package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Real-Dev-Squad/website-backend/internal/service"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

func TestUpdateRoles(t *testing.T) {
	ctx := context.Background()
	admin := &types.User{ID: uuid.New(), Roles: map[string]bool{types.RoleSuperUser: true}}
	target := uuid.New()
	missing := uuid.New()

	db := new(MockDatabaseStorage)
	grant := map[string]bool{types.RoleMember: true}
	db.On("UpdateUserRoles", mock.Anything, target, grant).
		Return(&types.User{ID: target, Roles: grant}, nil)
	db.On("UpdateUserRoles", mock.Anything, missing, grant).Return(nil, storage.ErrNotFound)
	svc := service.NewUserService(db, testLogger)

	user, err := svc.UpdateRoles(ctx, admin, target, types.UserRolesUpdateDto{Roles: grant})
	require.NoError(t, err)
	assert.True(t, user.HasRole(types.RoleMember))

	_, err = svc.UpdateRoles(ctx, admin, missing, types.UserRolesUpdateDto{Roles: grant})
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	_, err = svc.UpdateRoles(ctx, admin, admin.ID, types.UserRolesUpdateDto{Roles: map[string]bool{types.RoleSuperUser: false}})
	assert.ErrorIs(t, err, service.ErrForbidden)
	db.AssertNotCalled(t, "UpdateUserRoles", mock.Anything, admin.ID, mock.Anything)
}
