package mobilesync

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks sync statistics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	ActiveSessions *prometheus.GaugeVec
	Listeners      prometheus.Gauge
	InboundFrames  *prometheus.CounterVec
	EventsSent     prometheus.Counter
	PointsIngested prometheus.Counter
	IngestFailures prometheus.Counter
	SessionsClosed *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dedale",
			Subsystem: "sync",
			Name:      "active_sessions",
			Help:      "Mobile sessions currently connected, by variant.",
		}, []string{"variant"}),
		Listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dedale",
			Subsystem: "sync",
			Name:      "listeners",
			Help:      "Session listeners currently bound.",
		}),
		InboundFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dedale",
			Subsystem: "sync",
			Name:      "inbound_frames_total",
			Help:      "Frames received from mobile clients, by classification.",
		}, []string{"kind"}),
		EventsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dedale",
			Subsystem: "sync",
			Name:      "events_sent_total",
			Help:      "Transfer events pushed to mobile clients.",
		}),
		PointsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dedale",
			Subsystem: "sync",
			Name:      "points_ingested_total",
			Help:      "Mobile points committed to the store.",
		}),
		IngestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dedale",
			Subsystem: "sync",
			Name:      "ingest_failures_total",
			Help:      "Ingestion batches rolled back.",
		}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dedale",
			Subsystem: "sync",
			Name:      "sessions_closed_total",
			Help:      "Sessions closed, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.ActiveSessions, m.Listeners, m.InboundFrames,
			m.EventsSent, m.PointsIngested, m.IngestFailures, m.SessionsClosed)
	}
	return m
}

func (m *Metrics) sessionOpened(variant string) {
	if m != nil {
		m.ActiveSessions.WithLabelValues(variant).Inc()
	}
}

func (m *Metrics) sessionClosed(variant, reason string) {
	if m != nil {
		m.ActiveSessions.WithLabelValues(variant).Dec()
		m.SessionsClosed.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) listenerUp() {
	if m != nil {
		m.Listeners.Inc()
	}
}

func (m *Metrics) listenerDown() {
	if m != nil {
		m.Listeners.Dec()
	}
}

func (m *Metrics) inbound(kind Kind) {
	if m != nil {
		m.InboundFrames.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) eventSent() {
	if m != nil {
		m.EventsSent.Inc()
	}
}

func (m *Metrics) ingested(points int) {
	if m != nil {
		m.PointsIngested.Add(float64(points))
	}
}

func (m *Metrics) ingestFailed() {
	if m != nil {
		m.IngestFailures.Inc()
	}
}
