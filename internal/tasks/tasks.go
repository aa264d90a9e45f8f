package tasks

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/Real-Dev-Squad/website-backend/config"
)

const QUEUE_NAME = "rds-backend"

const (
	TypeNicknameSync   = "discord:nicknameSync"
	TypeAWSGroupAccess = "aws:groupAccess"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskInProgress = errors.New("task is still in progress")
	ErrTaskFailed     = errors.New("task failed")
)

// Enqueuer is the part of *asynq.Client the API uses, so handlers can be
// tested without redis.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RedisClientOpt builds asynq connection options from the shared redis config.
func RedisClientOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opts, err := cfg.GetRedisOptions()
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}

// Inspector is satisfied by *asynq.Inspector.
type Inspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// GetTaskResult returns the result written by a completed task.
func GetTaskResult(inspector Inspector, taskID string) ([]byte, error) {
	task, err := inspector.GetTaskInfo(QUEUE_NAME, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("fail to find task, err: %w", err)
	}

	switch task.State {
	case asynq.TaskStateCompleted:
		return task.Result, nil
	case asynq.TaskStateArchived:
		return nil, fmt.Errorf("%w: %s", ErrTaskFailed, task.LastErr)
	default:
		return nil, ErrTaskInProgress
	}
}
