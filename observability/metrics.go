package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Data keys read by MetricsObserver.
const (
	KeyRoute    = "route"
	KeyDuration = "duration"
	KeyStatus   = "status"
)

// MetricsObserver turns events into Prometheus series: a counter per event
// type and severity, and a latency histogram for events that carry a
// KeyDuration value.
type MetricsObserver struct {
	events  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetricsObserver creates a MetricsObserver and registers its collectors
// with reg.
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	o := &MetricsObserver{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopassist",
			Name:      "events_total",
			Help:      "Observability events by type and severity.",
		}, []string{"type", "level"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopassist",
			Name:      "relay_duration_seconds",
			Help:      "Upstream relay latency by route and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "outcome"}),
	}
	reg.MustRegister(o.events, o.latency)
	return o
}

func (o *MetricsObserver) OnEvent(_ context.Context, event Event) {
	o.events.WithLabelValues(string(event.Type), event.Level.String()).Inc()

	d, ok := event.Data[KeyDuration].(time.Duration)
	if !ok {
		return
	}
	route, _ := event.Data[KeyRoute].(string)

	outcome := "ok"
	if event.Level >= LevelWarning {
		outcome = "error"
	}
	o.latency.WithLabelValues(route, outcome).Observe(d.Seconds())
}
