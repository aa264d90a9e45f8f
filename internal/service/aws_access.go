package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/identitystore"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Real-Dev-Squad/website-backend/config"
	"github.com/Real-Dev-Squad/website-backend/internal/storage"
	"github.com/Real-Dev-Squad/website-backend/internal/tasks"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

// IdentityStoreAPI is the subset of the AWS Identity Store client used to
// grant group access.
type IdentityStoreAPI interface {
	ListUsersWithContext(ctx aws.Context, input *identitystore.ListUsersInput, opts ...request.Option) (*identitystore.ListUsersOutput, error)
	CreateUserWithContext(ctx aws.Context, input *identitystore.CreateUserInput, opts ...request.Option) (*identitystore.CreateUserOutput, error)
	CreateGroupMembershipWithContext(ctx aws.Context, input *identitystore.CreateGroupMembershipInput, opts ...request.Option) (*identitystore.CreateGroupMembershipOutput, error)
}

// NewIdentityStoreClient builds a client from static credentials when they are
// configured, otherwise from the default provider chain.
func NewIdentityStoreClient(cfg config.AWSConfig) (*identitystore.IdentityStore, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return identitystore.New(sess), nil
}

type AWSAccessService struct {
	db              storage.DatabaseStorage
	ids             IdentityStoreAPI
	identityStoreID string
	queue           tasks.Enqueuer
	logger          *logrus.Entry
}

func NewAWSAccessService(
	db storage.DatabaseStorage,
	ids IdentityStoreAPI,
	identityStoreID string,
	queue tasks.Enqueuer,
	logger *logrus.Logger,
) *AWSAccessService {
	return &AWSAccessService{
		db:              db,
		ids:             ids,
		identityStoreID: identityStoreID,
		queue:           queue,
		logger:          logger.WithField("service", "aws_access"),
	}
}

// RequestAccess checks the user can be provisioned and queues the grant.
func (s *AWSAccessService) RequestAccess(ctx context.Context, payload types.AWSAccessPayload) (string, error) {
	if _, err := s.loadUser(ctx, payload); err != nil {
		return "", err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	info, err := s.queue.Enqueue(
		asynq.NewTask(tasks.TypeAWSGroupAccess, b),
		asynq.Queue(tasks.QUEUE_NAME),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue aws access task: %w", err)
	}
	return info.ID, nil
}

// GrantAccess makes sure the user exists in the identity store and is a member
// of payload.GroupID. Granting an existing membership succeeds.
func (s *AWSAccessService) GrantAccess(ctx context.Context, payload types.AWSAccessPayload) error {
	user, err := s.loadUser(ctx, payload)
	if err != nil {
		return err
	}

	awsUserID, err := s.findOrCreateUser(ctx, user)
	if err != nil {
		return err
	}

	_, err = s.ids.CreateGroupMembershipWithContext(ctx, &identitystore.CreateGroupMembershipInput{
		IdentityStoreId: aws.String(s.identityStoreID),
		GroupId:         aws.String(payload.GroupID),
		MemberId:        &identitystore.MemberId{UserId: aws.String(awsUserID)},
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == identitystore.ErrCodeConflictException {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to add group membership: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"group_id": payload.GroupID,
	}).Info("aws group access granted")
	return nil
}

func (s *AWSAccessService) HandleGrantAccess(ctx context.Context, t *asynq.Task) error {
	var payload types.AWSAccessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %s: %w", err, asynq.SkipRetry)
	}
	err := s.GrantAccess(ctx, payload)
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrEmailRequired) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

func (s *AWSAccessService) loadUser(ctx context.Context, payload types.AWSAccessPayload) (*types.User, error) {
	user, err := s.db.FindUserByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user.Email == "" {
		return nil, ErrEmailRequired
	}
	return user, nil
}

func (s *AWSAccessService) findOrCreateUser(ctx context.Context, user *types.User) (string, error) {
	out, err := s.ids.ListUsersWithContext(ctx, &identitystore.ListUsersInput{
		IdentityStoreId: aws.String(s.identityStoreID),
		Filters: []*identitystore.Filter{{
			AttributePath:  aws.String("UserName"),
			AttributeValue: aws.String(user.Username),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to list identity store users: %w", err)
	}
	if len(out.Users) > 0 {
		return aws.StringValue(out.Users[0].UserId), nil
	}

	given, family := user.FirstName, user.LastName
	if given == "" {
		given = user.Username
	}
	if family == "" {
		family = user.Username
	}
	created, err := s.ids.CreateUserWithContext(ctx, &identitystore.CreateUserInput{
		IdentityStoreId: aws.String(s.identityStoreID),
		UserName:        aws.String(user.Username),
		DisplayName:     aws.String(user.Username),
		Name: &identitystore.Name{
			GivenName:  aws.String(given),
			FamilyName: aws.String(family),
		},
		Emails: []*identitystore.Email{{
			Value:   aws.String(user.Email),
			Primary: aws.Bool(true),
			Type:    aws.String("work"),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create identity store user: %w", err)
	}
	return aws.StringValue(created.UserId), nil
}
