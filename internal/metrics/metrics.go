// Package metrics exports engine steps and logic ledger writes as
// Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/plures/praxis/internal/engine"
	"github.com/plures/praxis/internal/logicledger"
	"github.com/plures/praxis/internal/protocol"
)

const namespace = "praxis"

// Collector implements engine.Observer and logicledger.WriteObserver.
// Each Collector owns its metrics; register it with Register.
type Collector struct {
	Steps        prometheus.Counter
	StepDuration prometheus.Histogram
	RulesRun     prometheus.Counter
	FactsAdded   prometheus.Counter
	Diagnostics  *prometheus.CounterVec
	LedgerWrites *prometheus.CounterVec
	Conflicts    *prometheus.CounterVec
}

var (
	_ engine.Observer           = (*Collector)(nil)
	_ logicledger.WriteObserver = (*Collector)(nil)
)

// NewCollector creates an unregistered collector.
func NewCollector() *Collector {
	return &Collector{
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "steps_total",
			Help:      "Total engine steps.",
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "step_duration_seconds",
			Help:      "Engine step duration in seconds.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		RulesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rules_run_total",
			Help:      "Total rule invocations.",
		}),
		FactsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "facts_added_total",
			Help:      "Total facts derived by rules.",
		}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "diagnostics_total",
			Help:      "Step diagnostics by kind.",
		}, []string{"kind"}),
		LedgerWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logic_ledger",
			Name:      "writes_total",
			Help:      "Logic ledger writes by change summary.",
		}, []string{"change"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logic_ledger",
			Name:      "conflicts_total",
			Help:      "Drift conflicts reported by logic ledger writes.",
		}, []string{"conflict"}),
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.Steps, c.StepDuration, c.RulesRun, c.FactsAdded,
		c.Diagnostics, c.LedgerWrites, c.Conflicts,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// ObserveStep implements engine.Observer.
func (c *Collector) ObserveStep(s engine.StepSummary) {
	c.Steps.Inc()
	c.StepDuration.Observe(s.Duration.Seconds())
	c.RulesRun.Add(float64(s.RulesRun))
	c.FactsAdded.Add(float64(s.FactsAdded))
	for _, kind := range []protocol.DiagnosticKind{
		protocol.DiagnosticRuleError,
		protocol.DiagnosticConstraintViolation,
	} {
		if n := s.Count(kind); n > 0 {
			c.Diagnostics.WithLabelValues(string(kind)).Add(float64(n))
		}
	}
}

// ObserveWrite implements logicledger.WriteObserver.
func (c *Collector) ObserveWrite(e logicledger.Entry) {
	c.LedgerWrites.WithLabelValues(string(e.Drift.ChangeSummary)).Inc()
	for _, conflict := range e.Drift.Conflicts {
		c.Conflicts.WithLabelValues(string(conflict)).Inc()
	}
}
