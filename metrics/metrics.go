// Package metrics registers the profiling core's Prometheus instruments,
// adapted from the registry/CounterOpts/GaugeOpts pattern used to expose
// per-stat metrics in a production node's stats subsystem.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dprofile"

// Registry wraps a dedicated prometheus.Registry (no default go_*/process_*
// collectors) with the counters and gauges one run emits.
type Registry struct {
	reg *prometheus.Registry

	rowsDecoded   *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec
	stageProgress *prometheus.GaugeVec
	stageSeconds  *prometheus.GaugeVec
}

// New builds a fresh registry. Each run typically gets its own, mirroring
// the one-registry-per-node pattern; a long-lived server process may
// instead share one Registry across runs and label by run_id, which is
// why run_id is a variable label rather than baked into the metric name.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.rowsDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "rows_decoded_total", Help: "Rows successfully decoded per run.",
	}, []string{"run_id"})

	r.errorsByCode = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "errors_total", Help: "Error/warning occurrences per run, by code.",
	}, []string{"run_id", "code"})

	r.stageProgress = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "stage_progress_pct", Help: "Last observed progress percentage per run.",
	}, []string{"run_id"})

	r.stageSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "stage_duration_seconds", Help: "Wall-clock duration of the last run of each stage.",
	}, []string{"run_id", "stage"})

	r.reg.MustRegister(r.rowsDecoded, r.errorsByCode, r.stageProgress, r.stageSeconds)
	return r
}

func (r *Registry) ObserveRowsDecoded(runID string, n int64) {
	r.rowsDecoded.WithLabelValues(runID).Add(float64(n))
}

func (r *Registry) ObserveError(runID, code string, n int) {
	r.errorsByCode.WithLabelValues(runID, sanitizeLabel(code)).Add(float64(n))
}

func (r *Registry) ObserveProgress(runID string, pct int) {
	r.stageProgress.WithLabelValues(runID).Set(float64(pct))
}

func (r *Registry) ObserveStageDuration(runID, stage string, seconds float64) {
	r.stageSeconds.WithLabelValues(runID, stage).Set(seconds)
}

func sanitizeLabel(code string) string {
	return strings.ToLower(code)
}

// Handler exposes the registry at /metrics, with scrape errors tolerated
// rather than aborting the whole response (the same ContinueOnError
// tradeoff the original stats subsystem documents).
func (r *Registry) Handler() http.Handler {
	opts := promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}
	return promhttp.InstrumentMetricHandler(r.reg, promhttp.HandlerFor(r.reg, opts))
}
