// Package metrics holds the Prometheus collectors of the ontology engine.
package metrics

import (
	"time"

	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Evolution records ontology evolution runs. A nil *Evolution is valid and
// records nothing.
type Evolution struct {
	runs     *prometheus.CounterVec   // By mode and outcome
	duration *prometheus.HistogramVec // By mode
	rows     *prometheus.CounterVec   // By entity
	rollback prometheus.Counter
}

// NewEvolution creates and registers the evolution collectors with reg.
func NewEvolution(reg prometheus.Registerer) (*Evolution, error) {
	m := &Evolution{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehouse",
			Subsystem: "evolution",
			Name:      "runs_total",
			Help:      "Total number of ontology evolution runs",
		}, []string{"mode", "outcome"}), // outcome: success, conflict, invalid, error

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "warehouse",
			Subsystem: "evolution",
			Name:      "run_duration_seconds",
			Help:      "Ontology evolution run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"mode"}),

		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehouse",
			Subsystem: "evolution",
			Name:      "rows_written_total",
			Help:      "Total number of ontology rows written by evolution runs",
		}, []string{"entity"}),

		rollback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warehouse",
			Subsystem: "evolution",
			Name:      "rollbacks_total",
			Help:      "Total number of ontology versions rolled back after a failed or abandoned run",
		}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.duration, m.rows, m.rollback} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one finished run.
func (m *Evolution) Observe(mode string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(mode, outcome(err)).Inc()
	m.duration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

// Rows adds n written rows of entity.
func (m *Evolution) Rows(entity string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rows.WithLabelValues(entity).Add(float64(n))
}

// RolledBack counts one version rollback.
func (m *Evolution) RolledBack() {
	if m == nil {
		return
	}
	m.rollback.Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case appErr.IsCode(err, appErr.CodeConflict):
		return "conflict"
	case appErr.IsCode(err, appErr.CodeInvalid):
		return "invalid"
	default:
		return "error"
	}
}
