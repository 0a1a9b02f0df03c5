package pipeline

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	stageRead    = "read"
	stageDecoder = "decoder"
	stageFilter  = "filter"
	stageEncoder = "encoder"
)

// Metrics exports the counters of transcoders as prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Units         *prometheus.CounterVec
	BusyRetries   *prometheus.CounterVec
	BytesWritten  prometheus.Counter
	DrainDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avrecode",
			Name:      "units_total",
			Help:      "Packets and frames that left a stage.",
		}, []string{"stage"}),
		BusyRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avrecode",
			Name:      "busy_retries_total",
			Help:      "Sends refused with busy and retried after draining.",
		}, []string{"stage"}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "avrecode",
			Name:      "written_bytes_total",
			Help:      "Bytes of encoded packets passed to the muxer.",
		}),
		DrainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "avrecode",
			Name:      "drain_duration_seconds",
			Help:      "Time spent flushing the chain at the end of the input.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

// Register adds all the collectors to r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	var errs []error
	for _, c := range []prometheus.Collector{m.Units, m.BusyRetries, m.BytesWritten, m.DrainDuration} {
		if err := r.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Metrics) observeUnit(stage string) {
	if m == nil {
		return
	}
	m.Units.WithLabelValues(stage).Inc()
}

func (m *Metrics) observeBusy(stage string) {
	if m == nil {
		return
	}
	m.BusyRetries.WithLabelValues(stage).Inc()
}

func (m *Metrics) observeWritten(size int) {
	if m == nil {
		return
	}
	m.BytesWritten.Add(float64(size))
}

func (m *Metrics) observeDrain(d time.Duration) {
	if m == nil {
		return
	}
	m.DrainDuration.Observe(d.Seconds())
}
