// Package metrics holds the Prometheus instrumentation of the stream
// policy.
//
// A nil *Metrics is valid and records nothing, so components take it as an
// optional dependency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "avpolicy"

// Metrics contains all Prometheus metrics for the stream policy.
type Metrics struct {
	// Negotiation metrics
	Selections       *prometheus.CounterVec
	Configurations   *prometheus.CounterVec
	CodecsRegistered prometheus.Gauge

	// Stream metrics
	Transitions   *prometheus.CounterVec
	ActiveStreams *prometheus.GaugeVec
	EffectiveMTU  *prometheus.GaugeVec

	// Data path metrics
	FramesSupplied prometheus.Counter
	FramesNotReady *prometheus.CounterVec
	FramesDropped  prometheus.Counter
	QualityLevel   prometheus.Gauge
	FrameSize      prometheus.Histogram

	// Content protection
	ProtectionActive prometheus.Gauge
}

// New creates the metrics and registers them with reg. A nil reg creates
// unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Selections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "selections_total",
			Help:      "Endpoint selections by resulting status",
		}, []string{"status"}),
		Configurations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "configurations_total",
			Help:      "Inbound stream configurations by outcome",
		}, []string{"outcome"}),
		CodecsRegistered: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "codecs_registered",
			Help:      "Number of codecs available for negotiation",
		}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stream_transitions_total",
			Help:      "Stream lifecycle transitions by target state",
		}, []string{"state"}),
		ActiveStreams: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "open_streams",
			Help:      "Currently open streams by direction",
		}, []string{"direction"}),
		EffectiveMTU: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "effective_mtu_bytes",
			Help:      "Effective shared MTU by direction",
		}, []string{"direction"}),

		FramesSupplied: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_supplied_total",
			Help:      "Frames handed to the media path",
		}),
		FramesNotReady: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_not_ready_total",
			Help:      "Frame polls answered with not ready, by reason",
		}, []string{"reason"}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames reported as not delivered",
		}),
		QualityLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "quality_reduction_level",
			Help:      "Current encoder quality reduction level",
		}),
		FrameSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "frame_size_bytes",
			Help:      "Size of supplied frames",
			Buckets:   prometheus.ExponentialBuckets(32, 2, 8), // 32B to 4KB
		}),

		ProtectionActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "content_protection_active",
			Help:      "1 while content protection is enforced on a started stream",
		}),
	}
}

// Not-ready reasons.
const (
	ReasonLocked   = "locked"
	ReasonNoStream = "no_stream"
	ReasonEmpty    = "empty"
)

// Selection records an endpoint selection outcome.
func (m *Metrics) Selection(status string) {
	if m == nil {
		return
	}
	m.Selections.WithLabelValues(status).Inc()
}

// Configuration records an inbound configuration outcome.
func (m *Metrics) Configuration(accepted bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.Configurations.WithLabelValues(outcome).Inc()
}

// SetCodecs records the number of registered codecs.
func (m *Metrics) SetCodecs(n int) {
	if m == nil {
		return
	}
	m.CodecsRegistered.Set(float64(n))
}

// Transition records a lifecycle transition.
func (m *Metrics) Transition(state string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(state).Inc()
}

// SetOpen records the number of open streams of a direction.
func (m *Metrics) SetOpen(direction string, n int) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(direction).Set(float64(n))
}

// SetMTU records the effective MTU of a direction.
func (m *Metrics) SetMTU(direction string, mtu uint16) {
	if m == nil {
		return
	}
	m.EffectiveMTU.WithLabelValues(direction).Set(float64(mtu))
}

// FrameSupplied records a frame handed to the media path.
func (m *Metrics) FrameSupplied(size int) {
	if m == nil {
		return
	}
	m.FramesSupplied.Inc()
	m.FrameSize.Observe(float64(size))
}

// NotReady records a frame poll that yielded nothing.
func (m *Metrics) NotReady(reason string) {
	if m == nil {
		return
	}
	m.FramesNotReady.WithLabelValues(reason).Inc()
}

// Dropped records an undelivered frame and the resulting quality level.
func (m *Metrics) Dropped(level int) {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
	m.QualityLevel.Set(float64(level))
}

// SetLevel records the quality reduction level.
func (m *Metrics) SetLevel(level int) {
	if m == nil {
		return
	}
	m.QualityLevel.Set(float64(level))
}

// SetProtection records whether content protection is enforced.
func (m *Metrics) SetProtection(active bool) {
	if m == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	m.ProtectionActive.Set(v)
}
