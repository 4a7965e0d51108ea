package recordstore

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records backend call counts and latency per action.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors. A nil registerer uses the Prometheus default.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Observe records one call outcome.
func (m *Metrics) Observe(action string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(action, outcome(err)).Inc()
	m.duration.WithLabelValues(action).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	var (
		transport *TransportError
		malformed *MalformedResponse
		rejection *BusinessRejection
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &malformed):
		return "malformed"
	case errors.As(err, &rejection):
		return "rejected"
	default:
		return "error"
	}
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fomet_backend_calls_total",
		Help: "Jumlah pemanggilan backend per action dan hasil.",
	}, []string{"action", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fomet_backend_call_duration_seconds",
		Help:    "Durasi pemanggilan backend per action.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
	registerer.MustRegister(calls, duration)
	return &Metrics{calls: calls, duration: duration}
}
