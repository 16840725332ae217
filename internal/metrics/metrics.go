// Package metrics exposes Prometheus counters for secret handling.
//
// Metrics are registered lazily with the default registry on first use, so
// packages can record unconditionally. Label values never include secret
// content: only kind identifiers, render occasions and outcome names.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderTotal     *prometheus.CounterVec
	renderFallbacks *prometheus.CounterVec
	revealTotal     *prometheus.CounterVec
	wrapTotal       *prometheus.CounterVec
	configSwaps     *prometheus.CounterVec

	// Registration guard
	metricsOnce sync.Once
)

// Init registers all metrics. It is safe to call more than once.
func Init() {
	metricsOnce.Do(func() {
		renderTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretval_render_total",
				Help: "Total number of secrets rendered on the presentation channel",
			},
			[]string{"kind", "occasion", "strategy"},
		)

		renderFallbacks = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretval_render_fallback_total",
				Help: "Renders that failed and fell back to the built-in redaction marker",
			},
			[]string{"kind"},
		)

		revealTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretval_reveal_total",
				Help: "Total number of deliberate secret reveals",
			},
			[]string{"kind"},
		)

		wrapTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretval_wrap_total",
				Help: "Total number of wrap attempts by outcome",
			},
			[]string{"kind", "result"},
		)

		configSwaps = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretval_config_changes_total",
				Help: "Configuration changes by operation and result",
			},
			[]string{"operation", "result"},
		)
	})
}

// RecordRender counts one render. strategy is the template source that was
// used: unredacted, override, partial, type, context or default.
func RecordRender(kind, occasion, strategy string) {
	Init()
	renderTotal.WithLabelValues(kind, occasion, strategy).Inc()
}

// RecordRenderFallback counts a render that failed and used the fallback.
func RecordRenderFallback(kind string) {
	Init()
	renderFallbacks.WithLabelValues(kind).Inc()
}

// RecordReveal counts one deliberate reveal.
func RecordReveal(kind string) {
	Init()
	revealTotal.WithLabelValues(kind).Inc()
}

// RecordWrap counts one wrap attempt.
func RecordWrap(kind string, ok bool) {
	Init()
	wrapTotal.WithLabelValues(kind, result(ok)).Inc()
}

// RecordConfigChange counts one configuration load, reload, import, reset
// or runtime change.
func RecordConfigChange(operation string, ok bool) {
	Init()
	configSwaps.WithLabelValues(operation, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "rejected"
}

// WriteTextfile writes the current values of all registered metrics to
// path in the Prometheus text format, for node_exporter's textfile
// collector.
func WriteTextfile(path string) error {
	Init()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
