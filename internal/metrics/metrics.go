package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/instance-scheduler/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics

	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "runs_total",
		Help:      "Total scheduler runs, by status.",
	}, []string{"status"})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "run_duration_seconds",
		Help:      "Wall time of one scheduler run.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	ResourcesEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "resources_evaluated_total",
		Help:      "Total resources evaluated across runs.",
	})

	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "actions_total",
		Help:      "Start/stop calls issued, by action and outcome.",
	}, []string{"action", "outcome"})

	IssuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "issues_total",
		Help:      "Non-fatal issues recorded during runs, by component.",
	}, []string{"component"})

	LastSuccessfulRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scheduler",
		Name:      "last_successful_run_timestamp_seconds",
		Help:      "Unix timestamp of the last run that finished without issues.",
	})

	// Config import metrics

	RecordsImportedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "records_imported_total",
		Help:      "Total schedule and period records written by configuration imports.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		RunsTotal,
		RunDuration,
		ResourcesEvaluated,
		ActionsTotal,
		IssuesTotal,
		LastSuccessfulRun,
		RecordsImportedTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics plus the liveness and readiness probes.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if result.Status != health.StatusUp {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}
