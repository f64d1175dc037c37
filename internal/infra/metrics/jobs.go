package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sweepRunsTotal, staleStatesPurgedTotal) }

var (
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_sweep_runs_total",
			Help: "Stale conversation sweeps, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)

	staleStatesPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stale_states_purged_total",
			Help: "Abandoned conversation records removed by the sweeper.",
		},
	)
)

func IncSweepRun(status string) {
	sweepRunsTotal.WithLabelValues(norm(status)).Inc()
}

func AddStatesPurged(n int64) {
	if n > 0 {
		staleStatesPurgedTotal.Add(float64(n))
	}
}
