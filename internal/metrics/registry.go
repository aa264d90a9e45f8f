package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// Service names for metrics registration
const (
	ServiceHTTP    = "http"
	ServiceFlags   = "feature_flags"
	ServiceTrading = "trading"
	ServiceWorker  = "worker"
)

// RegisterMetrics registers Go runtime collectors plus the collectors of each
// named service. Registering the same service twice is a no-op.
func RegisterMetrics(services []string, registry *prometheus.Registry, logger *logrus.Logger) {
	registerIfNotExists(collectors.NewGoCollector(), "go_collector", registry, logger)
	registerIfNotExists(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), "process_collector", registry, logger)

	for _, service := range services {
		switch service {
		case ServiceHTTP:
			registerIfNotExists(httpRequestsTotal, "http_requests_total", registry, logger)
			registerIfNotExists(httpRequestDuration, "http_request_duration", registry, logger)
			registerIfNotExists(httpActiveRequests, "http_active_requests", registry, logger)
		case ServiceFlags:
			registerIfNotExists(flagEvaluationsTotal, "feature_flags_evaluations_total", registry, logger)
			registerIfNotExists(flagEvaluationErrors, "feature_flags_evaluation_errors_total", registry, logger)
			registerIfNotExists(flagCacheLookups, "feature_flags_cache_lookups_total", registry, logger)
		case ServiceTrading:
			registerIfNotExists(tradesTotal, "trading_trades_total", registry, logger)
			registerIfNotExists(tradeVolume, "trading_volume_dinero_total", registry, logger)
		case ServiceWorker:
			registerIfNotExists(workerTasksTotal, "worker_tasks_total", registry, logger)
			registerIfNotExists(workerTaskDuration, "worker_task_duration", registry, logger)
			registerIfNotExists(workerTasksActive, "worker_tasks_active", registry, logger)
			registerIfNotExists(workerErrorsTotal, "worker_errors_total", registry, logger)
			registerIfNotExists(workerLastTaskTimestamp, "worker_last_task_timestamp", registry, logger)
		default:
			logger.Warnf("Unknown service type for metrics registration: %s", service)
		}
	}
}

func registerIfNotExists(collector prometheus.Collector, name string, registry *prometheus.Registry, logger *logrus.Logger) {
	if err := registry.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if !errors.As(err, &alreadyRegErr) {
			logger.Errorf("Failed to register %s: %v", name, err)
		}
	}
}
