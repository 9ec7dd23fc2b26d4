package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the control plane.
// A disabled config yields a no-op instance whose record methods are safe
// to call.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsSubmitted *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Action metrics
	actionsExecuted *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	actionsSkipped  prometheus.Counter

	// Approval metrics
	approvalsPending prometheus.Gauge
	approvalsGranted prometheus.Counter

	// Probe metrics
	probeFailures *prometheus.CounterVec

	// Reconciliation metrics
	driftOpen       prometheus.Gauge
	backfillCreated *prometheus.CounterVec

	// State store metrics
	stateSaves *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_submitted_total",
				Help:      "Total number of plan runs submitted",
			},
			[]string{"mode"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of runs reaching a terminal state",
			},
			[]string{"state"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of run execution in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"state"},
		),

		actionsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_executed_total",
				Help:      "Total number of actions executed, by adapter and outcome",
			},
			[]string{"adapter", "outcome"},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of single action execution in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"adapter", "action_type"},
		),
		actionsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_skipped_total",
				Help:      "Total number of actions skipped as already-executed duplicates",
			},
		),

		approvalsPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "approvals_pending",
				Help:      "Current number of runs awaiting approval",
			},
		),
		approvalsGranted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "approvals_granted_total",
				Help:      "Total number of approvals recorded",
			},
		),

		probeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probe_failures_total",
				Help:      "Total number of failed session probes",
			},
			[]string{"adapter"},
		),

		driftOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "drift_open",
				Help:      "Current number of unresolved drift entries",
			},
		),
		backfillCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backfill_created_total",
				Help:      "Total number of registrations created by backfill",
			},
			[]string{"kind"},
		),

		stateSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_saves_total",
				Help:      "Total number of state document saves",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.runsSubmitted,
		m.runsCompleted,
		m.runDuration,
		m.actionsExecuted,
		m.actionDuration,
		m.actionsSkipped,
		m.approvalsPending,
		m.approvalsGranted,
		m.probeFailures,
		m.driftOpen,
		m.backfillCreated,
		m.stateSaves,
	)

	return m, nil
}

// RecordRunSubmitted increments the counter for submitted runs.
func (m *Metrics) RecordRunSubmitted(mode string) {
	if m.runsSubmitted == nil {
		return
	}
	m.runsSubmitted.WithLabelValues(mode).Inc()
}

// RecordRunCompleted records a run reaching a terminal state.
func (m *Metrics) RecordRunCompleted(state string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(state).Inc()
	m.runDuration.WithLabelValues(state).Observe(duration.Seconds())
}

// RecordActionExecuted records one action execution outcome.
// The outcome is "success" or the failure category.
func (m *Metrics) RecordActionExecuted(adapter, outcome, actionType string, duration time.Duration) {
	if m.actionsExecuted == nil {
		return
	}
	m.actionsExecuted.WithLabelValues(adapter, outcome).Inc()
	m.actionDuration.WithLabelValues(adapter, actionType).Observe(duration.Seconds())
}

// RecordActionSkipped records an action skipped as a duplicate.
func (m *Metrics) RecordActionSkipped() {
	if m.actionsSkipped == nil {
		return
	}
	m.actionsSkipped.Inc()
}

// SetApprovalsPending sets the number of runs awaiting approval.
func (m *Metrics) SetApprovalsPending(count float64) {
	if m.approvalsPending == nil {
		return
	}
	m.approvalsPending.Set(count)
}

// RecordApprovalGranted records one recorded approval.
func (m *Metrics) RecordApprovalGranted() {
	if m.approvalsGranted == nil {
		return
	}
	m.approvalsGranted.Inc()
}

// RecordProbeFailure records a failed session probe.
func (m *Metrics) RecordProbeFailure(adapter string) {
	if m.probeFailures == nil {
		return
	}
	m.probeFailures.WithLabelValues(adapter).Inc()
}

// SetDriftOpen sets the number of unresolved drift entries.
func (m *Metrics) SetDriftOpen(count float64) {
	if m.driftOpen == nil {
		return
	}
	m.driftOpen.Set(count)
}

// RecordBackfillCreated records registrations created by a backfill pass.
func (m *Metrics) RecordBackfillCreated(kind string, count int) {
	if m.backfillCreated == nil {
		return
	}
	m.backfillCreated.WithLabelValues(kind).Add(float64(count))
}

// RecordStateSave records one state document save attempt.
func (m *Metrics) RecordStateSave(outcome string) {
	if m.stateSaves == nil {
		return
	}
	m.stateSaves.WithLabelValues(outcome).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
