package observability

import (
	"context"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	Steps            *prometheus.CounterVec
	Rollbacks        *prometheus.CounterVec
	Unconverged      *prometheus.CounterVec
	SearchIterations *prometheus.HistogramVec
	Power            *prometheus.GaugeVec
	Margin           prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Steps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corefollow_steps_total",
			Help: "Completed operation steps.",
		}, []string{"operation"}),
		Rollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corefollow_rollbacks_total",
			Help: "Operation steps rolled back after a numerical failure.",
		}, []string{"operation"}),
		Unconverged: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corefollow_search_unconverged_total",
			Help: "Criticality searches that ended without convergence.",
		}, []string{"mode"}),
		SearchIterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corefollow_search_iterations",
			Help:    "Solves used by a criticality search.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}, []string{"mode"}),
		Power: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corefollow_relative_power",
			Help: "Relative power at the end of the last step.",
		}, []string{"operation"}),
		Margin: f.NewGauge(prometheus.GaugeOpts{
			Name: "corefollow_shutdown_margin_pcm",
			Help: "Last computed shutdown margin.",
		}),
	}
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(e.Operation).Inc()
			if e.Result != nil {
				m.Power.WithLabelValues(e.Operation).Set(e.Result.Power)
			}
		},
		OnRollback: func(_ context.Context, e *domain.StepEvent) {
			m.Rollbacks.WithLabelValues(e.Operation).Inc()
		},
		OnSearch: func(_ context.Context, e *domain.SearchEvent) {
			mode := e.Mode.String()
			m.SearchIterations.WithLabelValues(mode).Observe(float64(e.Iterations))
			if !e.Converged {
				m.Unconverged.WithLabelValues(mode).Inc()
			}
		},
		OnMargin: func(_ context.Context, e *domain.MarginEvent) {
			if e.Result != nil {
				m.Margin.Set(e.Result.Margin)
			}
		},
	}
}
