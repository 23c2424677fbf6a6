package network

import "github.com/prometheus/client_golang/prometheus"

// Metrics - счетчики WebSocket-хаба
type Metrics struct {
	clients prometheus.Gauge
	sentMsg prometheus.Counter
	dropped prometheus.Counter
}

// NewMetrics регистрирует метрики хаба в reg. nil reg дает незарегистрированные метрики.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_clients",
			Help: "Число подключенных WebSocket-клиентов",
		}),
		sentMsg: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_messages_sent_total",
			Help: "Сообщений отправлено клиентам",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_messages_dropped_total",
			Help: "Сообщений потеряно из-за переполненной очереди клиента",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.clients, m.sentMsg, m.dropped)
	}
	return m
}

func (m *Metrics) connected() {
	if m != nil {
		m.clients.Inc()
	}
}

func (m *Metrics) disconnected() {
	if m != nil {
		m.clients.Dec()
	}
}

func (m *Metrics) sent() {
	if m != nil {
		m.sentMsg.Inc()
	}
}

func (m *Metrics) drop() {
	if m != nil {
		m.dropped.Inc()
	}
}
