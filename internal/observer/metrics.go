package observer

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricsEnabled atomic.Bool

// Webhook ingestion metrics
var (
	webhookLabels       = []string{"event_type", "company_id"}
	webhookActionLabels = []string{"event_type", "company_id", "action", "error_type"}

	WebhookEventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_webhook_events_received_total",
			Help: "Total number of provider webhook events received.",
		},
		[]string{"event_type"},
	)
	WebhookEventsActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_webhook_events_actions_total",
			Help: "Outcome of each webhook event: processed, dropped or failed.",
		},
		webhookActionLabels,
	)
	PipelineDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_crm_pipeline_duration_seconds",
			Help:    "Histogram of inbound pipeline durations (contact, ticket, message).",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		webhookLabels,
	)
)

// Database metrics
var (
	dbOperationLabels = []string{"operation", "entity", "company_id", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_crm_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// Dispatch worker metrics
var (
	dispatchFetchRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wa_crm_dispatch_fetch_requests_total",
		Help: "Total number of fetch requests made to the dispatch stream.",
	})
	dispatchFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wa_crm_dispatch_fetch_errors_total",
		Help: "Total number of errors encountered fetching from the dispatch stream.",
	})
	dispatchQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wa_crm_dispatch_queue_length",
		Help: "Current number of jobs waiting in the internal dispatch channel.",
	})
	dispatchWorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wa_crm_dispatch_workers_active",
		Help: "Current number of running workers in the dispatch pool.",
	})
	dispatchEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_dispatch_enqueued_total",
			Help: "Total number of dispatch jobs published, labeled by status.",
		},
		[]string{"company_id", "status"},
	)
	dispatchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_dispatch_attempts_total",
			Help: "Total number of provider send attempts, labeled by outcome (sent, retry, exhausted, invalid).",
		},
		[]string{"company_id", "outcome"},
	)
	dispatchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_crm_dispatch_duration_seconds",
			Help:    "Histogram of provider send durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"company_id"},
	)
)

// Realtime metrics
var (
	realtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wa_crm_realtime_connections",
		Help: "Current number of open websocket connections.",
	})
	realtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_realtime_events_total",
			Help: "Total number of realtime events, labeled by type and status (emitted, dropped, relayed).",
		},
		[]string{"event_type", "status"},
	)
)

// Load generator metrics
var (
	loadgenLabels = []string{"endpoint"}

	loadgenRequestsAttemptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_loadgen_requests_attempted_total",
			Help: "Total number of webhook requests the load generator attempted.",
		},
		loadgenLabels,
	)
	loadgenRequestsSucceededTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_loadgen_requests_succeeded_total",
			Help: "Total number of webhook requests acknowledged with 2xx.",
		},
		loadgenLabels,
	)
	loadgenRequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wa_crm_loadgen_request_errors_total",
			Help: "Total number of webhook requests that failed.",
		},
		loadgenLabels,
	)
)

// InitMetrics toggles metric collection. Collectors are registered by promauto.
func InitMetrics(enabled bool) {
	metricsEnabled.Store(enabled)
}

func enabled() bool { return metricsEnabled.Load() }

func sanitizeTenant(tenant string) string {
	if tenant == "" {
		return "unknown"
	}
	return tenant
}

// IncWebhookReceived counts a webhook delivery by event type.
func IncWebhookReceived(eventType string) {
	if !enabled() {
		return
	}
	WebhookEventsReceivedTotal.WithLabelValues(eventType).Inc()
}

// IncWebhookAction records the outcome of a webhook event.
func IncWebhookAction(eventType, companyID, action, errStr string) {
	if !enabled() {
		return
	}
	WebhookEventsActionsTotal.WithLabelValues(eventType, sanitizeTenant(companyID), action, SanitizeErrorType(errStr)).Inc()
}

// ObservePipelineDuration records time spent resolving and persisting an inbound message.
func ObservePipelineDuration(eventType, companyID string, duration time.Duration) {
	if !enabled() {
		return
	}
	PipelineDurationSeconds.WithLabelValues(eventType, sanitizeTenant(companyID)).Observe(duration.Seconds())
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity, companyID string, duration time.Duration, err error) {
	if !enabled() {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeTenant(companyID), status).Observe(duration.Seconds())
}

func IncDispatchFetchRequest() {
	if enabled() {
		dispatchFetchRequestsTotal.Inc()
	}
}

func IncDispatchFetchError() {
	if enabled() {
		dispatchFetchErrorsTotal.Inc()
	}
}

func SetDispatchQueueLength(length int) {
	if enabled() {
		dispatchQueueLength.Set(float64(length))
	}
}

func SetDispatchWorkersActive(count int) {
	if enabled() {
		dispatchWorkersActive.Set(float64(count))
	}
}

// IncDispatchEnqueued counts publish results ("ok" or "error").
func IncDispatchEnqueued(companyID, status string) {
	if enabled() {
		dispatchEnqueuedTotal.WithLabelValues(sanitizeTenant(companyID), status).Inc()
	}
}

// IncDispatchAttempt counts a send attempt by outcome.
func IncDispatchAttempt(companyID, outcome string) {
	if enabled() {
		dispatchAttemptsTotal.WithLabelValues(sanitizeTenant(companyID), outcome).Inc()
	}
}

func ObserveDispatchDuration(companyID string, duration time.Duration) {
	if enabled() {
		dispatchDurationSeconds.WithLabelValues(sanitizeTenant(companyID)).Observe(duration.Seconds())
	}
}

func IncRealtimeConnections() {
	if enabled() {
		realtimeConnections.Inc()
	}
}

func DecRealtimeConnections() {
	if enabled() {
		realtimeConnections.Dec()
	}
}

// IncRealtimeEvent counts an event by type and status.
func IncRealtimeEvent(eventType, status string) {
	if enabled() {
		realtimeEventsTotal.WithLabelValues(eventType, status).Inc()
	}
}

func IncLoadgenAttempted(endpoint string) {
	if enabled() {
		loadgenRequestsAttemptedTotal.WithLabelValues(endpoint).Inc()
	}
}

func IncLoadgenSucceeded(endpoint string) {
	if enabled() {
		loadgenRequestsSucceededTotal.WithLabelValues(endpoint).Inc()
	}
}

func IncLoadgenErrors(endpoint string) {
	if enabled() {
		loadgenRequestErrorsTotal.WithLabelValues(endpoint).Inc()
	}
}

// SanitizeErrorType maps an error string onto a small set of categories.
// Keep this simple to avoid high cardinality.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	switch {
	case strings.Contains(errStr, "configuration"):
		return "configuration"
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "SQL"), strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "constraint"), strings.Contains(errStr, "connection"):
		return "database"
	case strings.Contains(errStr, "validation failed"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"), strings.Contains(errStr, "missing field"):
		return "validation"
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "dispatch"), strings.Contains(errStr, "provider"):
		return "provider"
	case strings.Contains(errStr, "nats"), strings.Contains(errStr, "jetstream"):
		return "nats"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "unmarshal"), strings.Contains(errStr, "json"):
		return "unmarshal"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}
