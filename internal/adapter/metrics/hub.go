package metrics

import "github.com/prometheus/client_golang/prometheus"

// HubMetrics holds Prometheus metrics for the broadcast hub.
type HubMetrics struct {
	ReadingsPublished prometheus.Counter
	CurrentBPM        prometheus.Gauge
	SourceConnected   prometheus.Gauge
	Reconnects        prometheus.Counter
	Subscribers       prometheus.Gauge
	DeliveriesDropped prometheus.Counter
	SubscribersPruned prometheus.Counter
	PublishDuration   prometheus.Histogram
}

// NewHubMetrics creates and registers hub metrics on the given registry.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		ReadingsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "readings_published_total",
			Help:      "Total number of readings published by the hub.",
		}),
		CurrentBPM: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "current_bpm",
			Help:      "Most recent heart rate value in beats per minute.",
		}),
		SourceConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "source_connected",
			Help:      "1 if the heart rate source stream is connected, 0 otherwise.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "source_reconnects_total",
			Help:      "Total number of source disconnects followed by a reconnect attempt.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Number of registered live subscribers.",
		}),
		DeliveriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "deliveries_dropped_total",
			Help:      "Readings dropped for a subscriber because its delivery channel was full.",
		}),
		SubscribersPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "subscribers_pruned_total",
			Help:      "Subscribers removed by the hub after too many consecutive drops.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "publish_duration_seconds",
			Help:      "Time to store and fan out one reading.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
	}

	reg.MustRegister(
		m.ReadingsPublished, m.CurrentBPM, m.SourceConnected, m.Reconnects,
		m.Subscribers, m.DeliveriesDropped, m.SubscribersPruned, m.PublishDuration,
	)
	return m
}
