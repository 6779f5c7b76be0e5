package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

type Metrics struct {
	// Latency: длительность пулла /real-time-chart-data
	PullDuration prometheus.Histogram

	// Traffic: исходы пуллов (success, failure)
	PullsTotal *prometheus.CounterVec

	// Триггеры по источнику и результату (accepted, dropped)
	TriggersTotal *prometheus.CounterVec

	PushMessages *prometheus.CounterVec

	// Saturation: текущее состояние связи и источник данных (1 — активное значение)
	ConnectionState *prometheus.GaugeVec
	DataSource      *prometheus.GaugeVec

	// Состояние Circuit Breaker (0 - closed, 1 - half-open, 2 - open)
	CircuitBreakerState *prometheus.GaugeVec

	AlertsTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		PullDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "threatwatch_pull_duration_seconds",
			Help:    "Histogram of session data pull latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		PullsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "threatwatch_pulls_total",
			Help: "Total number of session data pulls by outcome.",
		}, []string{"outcome"}),

		TriggersTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "threatwatch_triggers_total",
			Help: "Refresh triggers by source and result.",
		}, []string{"trigger", "result"}),

		PushMessages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "threatwatch_push_messages_total",
			Help: "Recognized push channel messages by type.",
		}, []string{"type"}),

		ConnectionState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "threatwatch_connection_state",
			Help: "Current connection state to the detection service (1 = active).",
		}, []string{"state"}),

		DataSource: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "threatwatch_data_source",
			Help: "Current chart data source (1 = active).",
		}, []string{"source"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "threatwatch_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"breaker"}),

		AlertsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "threatwatch_alerts_total",
			Help: "Recorded user-visible alerts by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) setConnection(state domain.ConnectionState) {
	for _, s := range []domain.ConnectionState{domain.ConnConnecting, domain.ConnConnected, domain.ConnDisconnected, domain.ConnError} {
		m.ConnectionState.WithLabelValues(string(s)).Set(0)
	}
	m.ConnectionState.WithLabelValues(string(state)).Set(1)
}

func (m *Metrics) setSource(source domain.SourceKind) {
	m.DataSource.WithLabelValues(string(domain.SourceRemote)).Set(0)
	m.DataSource.WithLabelValues(string(domain.SourceSynthesized)).Set(0)
	if source != domain.SourceNone {
		m.DataSource.WithLabelValues(string(source)).Set(1)
	}
}

// ObserveAlert подключается к alerts.Log через OnRecord.
func (m *Metrics) ObserveAlert(a domain.Alert) {
	m.AlertsTotal.WithLabelValues(string(a.Kind)).Inc()
}
