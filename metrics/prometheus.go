package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports gateway counters and latencies under the
// "hivepay" namespace.
type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the collectors with reg. Pass
// prometheus.DefaultRegisterer for the global registry.
func NewPrometheusRecorder(reg prometheus.Registerer) Recorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hivepay",
			Name:      "events_total",
			Help:      "gateway event counters",
		},
		[]string{"type", "outcome"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hivepay",
			Name:      "latency_seconds",
			Help:      "outbound provider latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "provider"},
	)

	reg.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":    name,
		"outcome": labels["outcome"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"provider":  labels["provider"],
	}).Observe(d.Seconds())
}
