package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit outbox relay.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dossier_audit_outbox_published_total",
			Help: "Total number of audit outbox rows relayed to Kafka",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dossier_audit_outbox_produce_failures_total",
			Help: "Total number of failed audit outbox produce batches",
		}),
	}
}

func (m *Metrics) addPublished(n int) {
	if m != nil && n > 0 {
		m.Published.Add(float64(n))
	}
}

func (m *Metrics) incFailures() {
	if m != nil {
		m.Failures.Inc()
	}
}
