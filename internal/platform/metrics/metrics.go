package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds application-level Prometheus metrics. Module-specific
// metrics live next to their modules.
type Metrics struct {
	CasesOpened   prometheus.Counter
	FactsAppended prometheus.Counter
}

// New creates and registers all application-level Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CasesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visado_cases_opened_total",
			Help: "Total number of cases opened",
		}),
		FactsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visado_facts_appended_total",
			Help: "Total number of facts appended across all cases",
		}),
	}
}

// IncrementCasesOpened increments the cases opened counter by 1.
func (m *Metrics) IncrementCasesOpened() {
	if m != nil {
		m.CasesOpened.Inc()
	}
}

// AddFactsAppended adds the batch size to the facts appended counter.
func (m *Metrics) AddFactsAppended(n int) {
	if m != nil {
		m.FactsAppended.Add(float64(n))
	}
}
