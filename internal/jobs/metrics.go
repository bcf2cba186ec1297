package jobs

import "github.com/prometheus/client_golang/prometheus"

// Метрики раннера по имени задачи. Алерт на устаревший
// bqs_job_last_success_timestamp ловит и падения, и зависания.
var (
	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bqs_job_runs_total",
		Help: "Background job runs by job name",
	}, []string{"job"})

	jobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bqs_job_errors_total",
		Help: "Background job runs that returned an error or panicked",
	}, []string{"job"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bqs_job_duration_seconds",
		Help:    "Background job duration",
		Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15},
	}, []string{"job"})

	jobLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bqs_job_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run",
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(jobRuns, jobErrors, jobDuration, jobLastSuccess)
}
