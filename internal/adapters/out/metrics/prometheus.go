// Package metrics exports workflow measurements to Prometheus.
package metrics

import (
	"orderflow/internal/core/domain/model/order"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orderflow"

// Prometheus implements ports.Metrics.
type Prometheus struct {
	actions     *prometheus.CounterVec
	retries     *prometheus.CounterVec
	quarantined prometheus.Counter
	ticks       *prometheus.CounterVec
	outbox      *prometheus.CounterVec
}

// NewPrometheus registers the collectors with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	m := &Prometheus{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Workflow actions by action and outcome.",
		}, []string{"action", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_retries_total",
			Help:      "Actions retried after losing a version check.",
		}, []string{"action"}),
		quarantined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quarantined_orders_total",
			Help:      "Orders quarantined because their aggregate was inconsistent.",
		}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "orders_total",
			Help:      "Orders handled by scheduler ticks.",
		}, []string{"job", "result"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "messages_total",
			Help:      "Outbox messages by publish result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.actions, m.retries, m.quarantined, m.ticks, m.outbox} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Prometheus) ActionExecuted(action order.Action, outcome string) {
	m.actions.WithLabelValues(action.String(), outcome).Inc()
}

func (m *Prometheus) ConcurrencyRetried(action order.Action) {
	m.retries.WithLabelValues(action.String()).Inc()
}

func (m *Prometheus) AggregateQuarantined() {
	m.quarantined.Inc()
}

func (m *Prometheus) TickProcessed(job string, processed, failed int) {
	m.ticks.WithLabelValues(job, "processed").Add(float64(processed))
	m.ticks.WithLabelValues(job, "failed").Add(float64(failed))
}

func (m *Prometheus) OutboxRelayed(published, failed int) {
	m.outbox.WithLabelValues("published").Add(float64(published))
	m.outbox.WithLabelValues("failed").Add(float64(failed))
}
