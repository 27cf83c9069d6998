// Package metrics records per-run pipeline metrics and pushes them to a
// Prometheus Pushgateway at the end of a run.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "orsi_pipeline"

// Run holds the metrics of a single pipeline run.
type Run struct {
	registry     *prometheus.Registry
	stageSeconds *prometheus.GaugeVec
	rowsExported *prometheus.GaugeVec
	rowsLoaded   *prometheus.GaugeVec
	rowsRejected *prometheus.GaugeVec
	ocrChars     prometheus.Gauge
	failures     *prometheus.CounterVec
	lastSuccess  prometheus.Gauge
	succeeded    bool
}

// NewRun registers a fresh set of collectors on a private registry.
func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
		}, []string{"stage"}),
		rowsExported: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_exported",
			Help:      "Rows written to each table's CSV artifact.",
		}, []string{"table"}),
		rowsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_loaded",
			Help:      "Rows copied into each warehouse table.",
		}, []string{"table"}),
		rowsRejected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_rejected",
			Help:      "Malformed rows skipped while loading each table.",
		}, []string{"table"}),
		ocrChars: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ocr_text_chars",
			Help:      "Length of the recognised page text.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Fatal failures by stage.",
		}, []string{"stage"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	r.registry.MustRegister(r.stageSeconds, r.rowsExported, r.rowsLoaded, r.rowsRejected, r.ocrChars, r.failures)
	return r
}

// Registry exposes the run's registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records how long a stage took.
func (r *Run) ObserveStage(stage string, d time.Duration) {
	r.stageSeconds.WithLabelValues(stage).Set(d.Seconds())
}

// SetExported records the exported row count for a table.
func (r *Run) SetExported(table string, rows int) {
	r.rowsExported.WithLabelValues(table).Set(float64(rows))
}

// SetLoaded records load results for a table.
func (r *Run) SetLoaded(table string, loaded int64, rejected int) {
	r.rowsLoaded.WithLabelValues(table).Set(float64(loaded))
	r.rowsRejected.WithLabelValues(table).Set(float64(rejected))
}

// SetOCRChars records the size of the OCR text.
func (r *Run) SetOCRChars(n int) {
	r.ocrChars.Set(float64(n))
}

// Fail counts a fatal failure in stage.
func (r *Run) Fail(stage string) {
	r.failures.WithLabelValues(stage).Inc()
}

// Succeed stamps the success time. The gauge is only gathered once a run has
// succeeded, so a failed run never pushes it.
func (r *Run) Succeed(now time.Time) {
	if !r.succeeded {
		r.registry.MustRegister(r.lastSuccess)
		r.succeeded = true
	}
	r.lastSuccess.Set(float64(now.Unix()))
}

// Push sends the run's metrics to the gateway under job. It uses POST, which
// replaces only the metric names this run gathered; the previous success time
// survives a failed run.
func (r *Run) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(r.registry).AddContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
