package host

import "github.com/prometheus/client_golang/prometheus"

type busMetrics struct {
	messages *prometheus.CounterVec
	replies  *prometheus.CounterVec
	deferred *prometheus.CounterVec
	pending  prometheus.Gauge
}

func newBusMetrics(reg prometheus.Registerer) *busMetrics {
	m := &busMetrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxrelay_bus_messages_total",
			Help: "Messages executed by the bus by entry point and result.",
		}, []string{"entry", "result"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxrelay_bus_replies_total",
			Help: "Replies delivered to submessage senders by outcome.",
		}, []string{"outcome"}),
		deferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxrelay_bus_deferred_total",
			Help: "Deferred message deliveries by result.",
		}, []string{"result"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxrelay_bus_deferred_pending",
			Help: "Deferred messages waiting for delivery.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.messages, m.replies, m.deferred, m.pending)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
