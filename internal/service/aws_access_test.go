package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/identitystore"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Real-Dev-Squad/website-backend/internal/service"
	"github.com/Real-Dev-Squad/website-backend/internal/tasks"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) ListUsersWithContext(ctx aws.Context, input *identitystore.ListUsersInput, _ ...request.Option) (*identitystore.ListUsersOutput, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(*identitystore.ListUsersOutput), args.Error(1)
}

func (m *MockIdentityStore) CreateUserWithContext(ctx aws.Context, input *identitystore.CreateUserInput, _ ...request.Option) (*identitystore.CreateUserOutput, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(*identitystore.CreateUserOutput), args.Error(1)
}

func (m *MockIdentityStore) CreateGroupMembershipWithContext(ctx aws.Context, input *identitystore.CreateGroupMembershipInput, _ ...request.Option) (*identitystore.CreateGroupMembershipOutput, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(*identitystore.CreateGroupMembershipOutput), args.Error(1)
}

func TestGrantAccessCreatesUser(t *testing.T) {
	ctx := context.Background()
	user := &types.User{ID: uuid.New(), Username: "ankush", FirstName: "Ankush", Email: "a@rds.dev"}
	db, ids := new(MockDatabaseStorage), new(MockIdentityStore)
	db.On("FindUserByID", mock.Anything, user.ID).Return(user, nil)
	ids.On("ListUsersWithContext", mock.Anything, mock.MatchedBy(func(in *identitystore.ListUsersInput) bool {
		return aws.StringValue(in.Filters[0].AttributeValue) == "ankush"
	})).Return(&identitystore.ListUsersOutput{}, nil)
	ids.On("CreateUserWithContext", mock.Anything, mock.MatchedBy(func(in *identitystore.CreateUserInput) bool {
		return aws.StringValue(in.UserName) == "ankush" &&
			aws.StringValue(in.Name.FamilyName) == "ankush" &&
			aws.StringValue(in.Emails[0].Value) == "a@rds.dev"
	})).Return(&identitystore.CreateUserOutput{UserId: aws.String("aws-1")}, nil)
	ids.On("CreateGroupMembershipWithContext", mock.Anything, mock.MatchedBy(func(in *identitystore.CreateGroupMembershipInput) bool {
		return aws.StringValue(in.GroupId) == "g-1" && aws.StringValue(in.MemberId.UserId) == "aws-1"
	})).Return(&identitystore.CreateGroupMembershipOutput{}, nil)

	svc := service.NewAWSAccessService(db, ids, "d-123", &fakeEnqueuer{}, testLogger)
	require.NoError(t, svc.GrantAccess(ctx, types.AWSAccessPayload{UserID: user.ID, GroupID: "g-1"}))
	ids.AssertExpectations(t)
}

func TestGrantAccessExistingMembership(t *testing.T) {
	ctx := context.Background()
	user := &types.User{ID: uuid.New(), Username: "ankush", Email: "a@rds.dev"}
	db, ids := new(MockDatabaseStorage), new(MockIdentityStore)
	db.On("FindUserByID", mock.Anything, user.ID).Return(user, nil)
	ids.On("ListUsersWithContext", mock.Anything, mock.Anything).Return(&identitystore.ListUsersOutput{
		Users: []*identitystore.User{{UserId: aws.String("aws-1"), UserName: aws.String("ankush")}},
	}, nil)
	ids.On("CreateGroupMembershipWithContext", mock.Anything, mock.Anything).
		Return(&identitystore.CreateGroupMembershipOutput{}, awserr.New(identitystore.ErrCodeConflictException, "already a member", nil))

	svc := service.NewAWSAccessService(db, ids, "d-123", &fakeEnqueuer{}, testLogger)
	require.NoError(t, svc.GrantAccess(ctx, types.AWSAccessPayload{UserID: user.ID, GroupID: "g-1"}))
	ids.AssertNotCalled(t, "CreateUserWithContext", mock.Anything, mock.Anything)
}

func TestRequestAccessRequiresEmail(t *testing.T) {
	ctx := context.Background()
	noEmail := &types.User{ID: uuid.New(), Username: "ghost"}
	withEmail := &types.User{ID: uuid.New(), Username: "ankush", Email: "a@rds.dev"}
	db := new(MockDatabaseStorage)
	db.On("FindUserByID", mock.Anything, noEmail.ID).Return(noEmail, nil)
	db.On("FindUserByID", mock.Anything, withEmail.ID).Return(withEmail, nil)
	queue := &fakeEnqueuer{}
	svc := service.NewAWSAccessService(db, new(MockIdentityStore), "d-123", queue, testLogger)

	_, err := svc.RequestAccess(ctx, types.AWSAccessPayload{UserID: noEmail.ID, GroupID: "g-1"})
	assert.ErrorIs(t, err, service.ErrEmailRequired)

	taskID, err := svc.RequestAccess(ctx, types.AWSAccessPayload{UserID: withEmail.ID, GroupID: "g-1"})
	require.NoError(t, err)
	assert.Equal(t, "task-"+tasks.TypeAWSGroupAccess, taskID)

	var payload types.AWSAccessPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, withEmail.ID, payload.UserID)

	// a user without email is never retried by the worker
	b, _ := json.Marshal(types.AWSAccessPayload{UserID: noEmail.ID, GroupID: "g-1"})
	err = svc.HandleGrantAccess(ctx, asynq.NewTask(tasks.TypeAWSGroupAccess, b))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
