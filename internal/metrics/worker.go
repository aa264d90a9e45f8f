package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	workerTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "Total number of tasks processed by type and status",
		},
		[]string{"task_type", "status"},
	)

	workerTaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Duration of task processing by type",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	workerTasksActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_active",
			Help:      "Number of currently active tasks by type",
		},
		[]string{"task_type"},
	)

	workerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "errors_total",
			Help:      "Total number of errors by task type and error type",
		},
		[]string{"task_type", "error_type"},
	)

	workerLastTaskTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "last_task_timestamp",
			Help:      "Timestamp of when worker last processed a task",
		},
	)
)

type WorkerMetrics struct{}

func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{}
}

func (wm *WorkerMetrics) RecordTask(taskType string, duration float64, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
		workerErrorsTotal.WithLabelValues(taskType, classifyError(err)).Inc()
	}
	workerTasksTotal.WithLabelValues(taskType, status).Inc()
	workerTaskDuration.WithLabelValues(taskType).Observe(duration)
	workerLastTaskTimestamp.SetToCurrentTime()
}

// WithWorkerMetrics wraps a task handler with worker metrics collection.
func WithWorkerMetrics(handler asynq.HandlerFunc, taskType string, metrics *WorkerMetrics) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if metrics == nil {
			return handler.ProcessTask(ctx, task)
		}

		start := time.Now()
		workerTasksActive.WithLabelValues(taskType).Inc()
		defer workerTasksActive.WithLabelValues(taskType).Dec()

		err := handler.ProcessTask(ctx, task)
		metrics.RecordTask(taskType, time.Since(start).Seconds(), err)
		return err
	}
}

func classifyError(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, asynq.SkipRetry):
		return "permanent"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "context_cancelled"
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "connection"):
		return "network"
	case strings.Contains(errStr, "status code"):
		return "upstream"
	default:
		return "unknown"
	}
}
