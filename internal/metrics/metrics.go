// Package metrics exposes Prometheus counters for the budget engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recalculations counts spend recalculation runs by outcome.
	Recalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fiscus_budget_recalculations_total",
		Help: "Number of budget spend recalculations, labelled by result.",
	}, []string{"result"})

	// AlertsFired counts alert trigger transitions (false -> true).
	AlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fiscus_budget_alerts_fired_total",
		Help: "Number of budget alerts that transitioned to triggered.",
	})

	// Renewals counts auto-renewal attempts by outcome.
	Renewals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fiscus_budget_renewals_total",
		Help: "Number of budget auto-renewals, labelled by result.",
	}, []string{"result"})
)
