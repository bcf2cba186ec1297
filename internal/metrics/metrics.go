package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bqs"

var (
	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "transitions_total", Help: "Workflow status transitions by target status",
	}, []string{"to"})
	Approvals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "approvals_total", Help: "Recorded approval decisions",
	}, []string{"role", "decision"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route pattern and status code",
	}, []string{"route", "code"})
	NotifyErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "notify_errors_total", Help: "Failed notification deliveries",
	})
	Opportunities = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "opportunities", Help: "Active opportunities by workflow status",
	}, []string{"status"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Transitions, Approvals, HTTPRequests, NotifyErrors, Opportunities, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// SetOpportunityCounts заменяет значения гейджа целиком: пропавшие статусы обнуляются.
func SetOpportunityCounts(counts map[string]int) {
	Opportunities.Reset()
	for status, n := range counts {
		Opportunities.WithLabelValues(status).Set(float64(n))
	}
}
