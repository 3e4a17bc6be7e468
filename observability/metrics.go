// Package observability exposes prometheus collectors for the chat API.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chat_api"

type Metrics struct {
	MessagesPosted    prometheus.Counter
	Logins            *prometheus.CounterVec
	ActiveSubscribers prometheus.Gauge
	EventsDelivered   *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		MessagesPosted: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "messages_posted_total", Help: "Number of messages accepted by addMessage."},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "logins_total", Help: "Number of login attempts by outcome."},
			[]string{"outcome"},
		),
		ActiveSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "active_subscribers", Help: "Number of live subscription operations."},
		),
		EventsDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "events_delivered_total", Help: "Number of bus events delivered to subscribers."},
			[]string{"topic"},
		),
		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "events_dropped_total", Help: "Number of bus events lost to full subscriber buffers."},
			[]string{"topic"},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.MessagesPosted,
		m.Logins,
		m.ActiveSubscribers,
		m.EventsDelivered,
		m.EventsDropped,
	)
}

// EventDelivered and EventDropped satisfy the bus Recorder interface.
func (m *Metrics) EventDelivered(topic string) { m.EventsDelivered.WithLabelValues(topic).Inc() }
func (m *Metrics) EventDropped(topic string)  { m.EventsDropped.WithLabelValues(topic).Inc() }
