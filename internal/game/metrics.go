package game

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - Prometheus-метрики симуляции. nil *Metrics допустим и ничего не пишет.
type Metrics struct {
	ticks         prometheus.Counter
	tickDuration  prometheus.Histogram
	droppedEvents prometheus.Counter
	activeGames   prometheus.Gauge
	saveErrors    prometheus.Counter
}

// NewMetrics создает и регистрирует метрики в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "ticks_total",
			Help:      "Число выполненных игровых тиков по всем играм.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "battle",
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного игрового тика.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		}),
		droppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "update_events_dropped_total",
			Help:      "События обновления, отброшенные из-за медленного потребителя.",
		}),
		activeGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "battle",
			Name:      "active_games",
			Help:      "Число игр в состоянии IN_PROGRESS.",
		}),
		saveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "army_save_errors_total",
			Help:      "Ошибки сохранения армий.",
		}),
	}

	reg.MustRegister(m.ticks, m.tickDuration, m.droppedEvents, m.activeGames, m.saveErrors)
	return m
}

func (m *Metrics) observeTick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

func (m *Metrics) eventDropped() {
	if m == nil {
		return
	}
	m.droppedEvents.Inc()
}

func (m *Metrics) gameStarted() {
	if m == nil {
		return
	}
	m.activeGames.Inc()
}

func (m *Metrics) gameStopped() {
	if m == nil {
		return
	}
	m.activeGames.Dec()
}

func (m *Metrics) saveFailed() {
	if m == nil {
		return
	}
	m.saveErrors.Inc()
}
