package jobx

import "github.com/prometheus/client_golang/prometheus"

// JobsProcessed counts handled jobs by type and outcome.
var JobsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lingua_jobs_processed_total",
		Help: "Background jobs processed by type and outcome",
	},
	[]string{"type", "outcome"},
)

// RegisterMetrics registers the job metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(JobsProcessed)
}
