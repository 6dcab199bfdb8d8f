// Package metrics provides Prometheus instrumentation for location ingest.
//
// Metrics exposed:
//   - owntracker_samples_recorded_total: Counter of accepted samples by source
//   - owntracker_validation_failures_total: Counter of rejected reports by source
//   - owntracker_sink_errors_total: Counter of archive/publisher failures by sink
//   - owntracker_history_evictions_total: Counter of samples dropped by the history limit
//   - owntracker_devices_tracked: Gauge of devices with at least one sample
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/anusthan12/owntracker/module/core/domain"
)

type Metrics struct {
	SamplesRecorded    *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	SinkErrors         *prometheus.CounterVec
	HistoryEvictions   prometheus.Counter
	DevicesTracked     prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SamplesRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "owntracker_samples_recorded_total",
			Help: "Total number of accepted location samples by source",
		}, []string{"source"}),

		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "owntracker_validation_failures_total",
			Help: "Total number of rejected location reports by source",
		}, []string{"source"}),

		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "owntracker_sink_errors_total",
			Help: "Total number of failed archive or publish attempts by sink",
		}, []string{"sink"}),

		HistoryEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "owntracker_history_evictions_total",
			Help: "Total number of samples dropped to keep device histories bounded",
		}),

		DevicesTracked: f.NewGauge(prometheus.GaugeOpts{
			Name: "owntracker_devices_tracked",
			Help: "Number of devices with at least one stored sample",
		}),
	}
}

func (m *Metrics) RecordSample(source domain.Source, evicted, devices int) {
	m.SamplesRecorded.WithLabelValues(string(source)).Inc()
	if evicted > 0 {
		m.HistoryEvictions.Add(float64(evicted))
	}
	m.DevicesTracked.Set(float64(devices))
}

func (m *Metrics) RecordValidationFailure(source domain.Source) {
	m.ValidationFailures.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) RecordSinkError(sink string) {
	m.SinkErrors.WithLabelValues(sink).Inc()
}
