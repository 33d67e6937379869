// Package metrics provides Prometheus instrumentation for byteflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for byteflow components.
type Registry struct {
	// Writer Metrics
	WriterAppends      *prometheus.CounterVec
	WriterDirectWrites *prometheus.CounterVec
	WriterBytesWritten *prometheus.CounterVec
	WriterFlushes      *prometheus.CounterVec
	WriterFailures     *prometheus.CounterVec
	WriterPosition     *prometheus.GaugeVec

	// Buffer Metrics
	BufferConversions *prometheus.CounterVec
	BufferCopiedBytes prometheus.Counter

	// Flusher Metrics
	FlusherRuns   *prometheus.CounterVec
	FlusherErrors *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by byteflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Enabled: true, Registry: reg})
}

// NewRegistryWithConfig creates a registry honoring the namespace and constant
// labels of config. A nil config.Registry registers nowhere, which is useful
// for components that only need the collectors.
func NewRegistryWithConfig(config Config) *Registry {
	factory := promauto.With(config.Registry)
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	labels := config.Labels

	return &Registry{
		WriterAppends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "writer",
				Name:        "appends_total",
				Help:        "Total number of Append calls issued to destinations",
				ConstLabels: labels,
			},
			[]string{"writer_name"},
		),

		WriterDirectWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "writer",
				Name:        "direct_writes_total",
				Help:        "Total number of writes that bypassed the buffer",
				ConstLabels: labels,
			},
			[]string{"writer_name"},
		),

		WriterBytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "writer",
				Name:        "bytes_written_total",
				Help:        "Total bytes appended to destinations",
				ConstLabels: labels,
			},
			[]string{"writer_name"},
		),

		WriterFlushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "writer",
				Name:        "flushes_total",
				Help:        "Total number of writer flushes by granularity",
				ConstLabels: labels,
			},
			[]string{"writer_name", "level"},
		),

		WriterFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "writer",
				Name:        "failures_total",
				Help:        "Total number of terminal writer failures by failing operation",
				ConstLabels: labels,
			},
			[]string{"writer_name", "operation"},
		),

		WriterPosition: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "writer",
				Name:        "position_bytes",
				Help:        "Absolute destination position after the last Append",
				ConstLabels: labels,
			},
			[]string{"writer_name"},
		),

		BufferConversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "buffer",
				Name:        "conversions_total",
				Help:        "Total number of buffer to cord conversions by mode",
				ConstLabels: labels,
			},
			[]string{"mode"},
		),

		BufferCopiedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "buffer",
				Name:        "copied_bytes_total",
				Help:        "Total bytes copied while converting buffers to cords",
				ConstLabels: labels,
			},
		),

		FlusherRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "flusher",
				Name:        "runs_total",
				Help:        "Total number of scheduled flushes",
				ConstLabels: labels,
			},
			[]string{"flusher_name"},
		),

		FlusherErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "flusher",
				Name:        "errors_total",
				Help:        "Total number of scheduled flushes that failed",
				ConstLabels: labels,
			},
			[]string{"flusher_name"},
		),
	}
}
