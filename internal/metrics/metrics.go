// Package metrics records teardown and install phase metrics and writes
// them in the Prometheus textfile format, so a node_exporter textfile
// collector or a CI job can pick them up after a run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Results of a resource deletion.
const (
	ResultDeleted = "deleted"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Recorder holds the hopsctl metrics in a private registry.
type Recorder struct {
	registry *prometheus.Registry

	resourcesTotal *prometheus.CounterVec
	phaseDuration  *prometheus.HistogramVec
}

// NewRecorder creates a recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		resourcesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hopsctl",
				Subsystem: "teardown",
				Name:      "resources_total",
				Help:      "Resources handled by teardown by provider, kind and result",
			},
			[]string{"provider", "kind", "result"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hopsctl",
				Name:      "phase_duration_seconds",
				Help:      "Duration of command phases in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 13), // 1s to ~68min
			},
			[]string{"command", "phase"},
		),
	}
	r.registry.MustRegister(r.resourcesTotal, r.phaseDuration)
	return r
}

// RecordResource counts one handled resource.
func (r *Recorder) RecordResource(provider, kind, result string) {
	if r == nil {
		return
	}
	r.resourcesTotal.WithLabelValues(provider, kind, result).Inc()
}

// ObservePhase records how long a phase took.
func (r *Recorder) ObservePhase(command, phase string, d time.Duration) {
	if r == nil {
		return
	}
	r.phaseDuration.WithLabelValues(command, phase).Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
