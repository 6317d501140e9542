package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's counters. Handlers bump the atomics on the
// hot path; Prometheus reads them lazily through GaugeFunc collectors on
// a private registry.
type Metrics struct {
	ConnectedClients  atomic.Int64
	SessionsJoined    atomic.Uint64
	DetectionsSeen    atomic.Uint64
	Confirmations     atomic.Uint64
	FramesRelayed     atomic.Uint64
	MessagesDropped   atomic.Uint64
	AlertsSent        atomic.Uint64
	AlertFailures     atomic.Uint64

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauge := func(name, help string, value func() float64) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			value,
		))
	}

	gauge("relay_connected_clients", "Currently connected WebSocket clients",
		func() float64 { return float64(m.ConnectedClients.Load()) })
	gauge("relay_sessions_joined_total", "Total join-session events handled",
		func() float64 { return float64(m.SessionsJoined.Load()) })
	gauge("relay_detections_observed_total", "Total detection events observed",
		func() float64 { return float64(m.DetectionsSeen.Load()) })
	gauge("relay_confirmations_total", "Total confirmed detections",
		func() float64 { return float64(m.Confirmations.Load()) })
	gauge("relay_frames_relayed_total", "Total video frames fanned out",
		func() float64 { return float64(m.FramesRelayed.Load()) })
	gauge("relay_messages_dropped_total", "Messages dropped for slow clients",
		func() float64 { return float64(m.MessagesDropped.Load()) })
	gauge("relay_alerts_sent_total", "Webhook alerts delivered",
		func() float64 { return float64(m.AlertsSent.Load()) })
	gauge("relay_alert_failures_total", "Webhook alert delivery failures",
		func() float64 { return float64(m.AlertFailures.Load()) })
}

// Handler returns the Prometheus scrape handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
