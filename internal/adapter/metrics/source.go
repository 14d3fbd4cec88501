package metrics

import "github.com/prometheus/client_golang/prometheus"

// SourceMetrics holds Prometheus metrics for heart rate source adapters.
type SourceMetrics struct {
	FramesReceived  *prometheus.CounterVec
	MalformedFrames *prometheus.CounterVec
	BreakerState    prometheus.Gauge
	RedisOps        *prometheus.CounterVec
	RedisOpDuration *prometheus.HistogramVec
}

// NewSourceMetrics creates and registers source metrics on the given registry.
func NewSourceMetrics(reg prometheus.Registerer) *SourceMetrics {
	m := &SourceMetrics{
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "frames_received_total",
			Help:      "Heart rate measurement frames received, by source kind.",
		}, []string{"source"}),
		MalformedFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "malformed_frames_total",
			Help:      "Frames that could not be decoded into a reading, by source kind.",
		}, []string{"source"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "circuit_breaker_state",
			Help:      "Redis circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		RedisOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Redis commands issued by the source, by command and outcome.",
		}, []string{"operation", "status"}),
		RedisOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Redis command latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"operation"}),
	}

	reg.MustRegister(m.FramesReceived, m.MalformedFrames, m.BreakerState, m.RedisOps, m.RedisOpDuration)
	return m
}
