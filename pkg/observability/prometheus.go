package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gerrywalk"

// PrometheusHooks records chain, pipeline, and cache events as Prometheus
// metrics. It implements [ChainHooks], [PipelineHooks], and [CacheHooks].
type PrometheusHooks struct {
	chainsStarted   prometheus.Counter
	chainsCompleted *prometheus.CounterVec
	chainDuration   prometheus.Histogram
	steps           *prometheus.CounterVec
	stepDuration    prometheus.Histogram
	invalid         prometheus.Counter

	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	written       prometheus.Counter

	cacheOps *prometheus.CounterVec
}

// NewPrometheusHooks registers the metrics with reg and returns hooks that
// update them. Passing prometheus.NewRegistry() keeps tests isolated.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		chainsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "started_total",
			Help:      "Chains started",
		}),
		chainsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "completed_total",
			Help:      "Chains completed by status",
		}, []string{"status"}),
		chainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "duration_seconds",
			Help:      "Wall time of a full chain run",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "steps_total",
			Help:      "Emitted states by outcome",
		}, []string{"outcome"}),
		stepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "step_duration_seconds",
			Help:      "Time to produce one emitted state",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		invalid: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "invalid_proposals_total",
			Help:      "Proposals rejected by the validator",
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_errors_total",
			Help:      "Pipeline stage failures",
		}, []string{"stage"}),
		written: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "records_written_total",
			Help:      "Diff-stream records written",
		}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache operations by key type and result",
		}, []string{"key_type", "result"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// =============================================================================
// ChainHooks
// =============================================================================

func (h *PrometheusHooks) OnChainStart(context.Context, string, int) { h.chainsStarted.Inc() }

func (h *PrometheusHooks) OnStep(_ context.Context, outcome string, d time.Duration) {
	h.steps.WithLabelValues(outcome).Inc()
	h.stepDuration.Observe(d.Seconds())
}

func (h *PrometheusHooks) OnInvalidProposal(context.Context) { h.invalid.Inc() }

func (h *PrometheusHooks) OnChainComplete(_ context.Context, _ int, d time.Duration, err error) {
	h.chainsCompleted.WithLabelValues(status(err)).Inc()
	h.chainDuration.Observe(d.Seconds())
}

// =============================================================================
// PipelineHooks
// =============================================================================

func (h *PrometheusHooks) stage(name string, d time.Duration, err error) {
	h.stageDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		h.stageErrors.WithLabelValues(name).Inc()
	}
}

func (h *PrometheusHooks) OnLoadStart(context.Context, string) {}

func (h *PrometheusHooks) OnLoadComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	h.stage("load", d, err)
}

func (h *PrometheusHooks) OnSeedStart(context.Context, int) {}

func (h *PrometheusHooks) OnSeedComplete(_ context.Context, _ int, d time.Duration, err error) {
	h.stage("seed", d, err)
}

func (h *PrometheusHooks) OnWriteStart(context.Context, string) {}

func (h *PrometheusHooks) OnWriteComplete(_ context.Context, _ string, records int, d time.Duration, err error) {
	h.stage("write", d, err)
	h.written.Add(float64(records))
}

// =============================================================================
// CacheHooks
// =============================================================================

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	h.cacheOps.WithLabelValues(keyType, "set").Inc()
}
