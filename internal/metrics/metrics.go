package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonoralabs/sonora/internal/health"
)

var (
	// Auth metrics

	TokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonora",
		Name:      "tokens_issued_total",
		Help:      "Security tokens issued, by purpose.",
	}, []string{"purpose"})

	TokenRedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonora",
		Name:      "token_redemptions_total",
		Help:      "Token redemption attempts, by purpose and outcome.",
	}, []string{"purpose", "outcome"})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonora",
		Name:      "logins_total",
		Help:      "Completed authentication events, by provider and outcome.",
	}, []string{"provider", "outcome"})

	UsersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonora",
		Name:      "users_created_total",
		Help:      "New canonical identities, by the provider that created them.",
	}, []string{"provider"})

	TokensPrunedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sonora",
		Name:      "tokens_pruned_total",
		Help:      "Expired ledger rows removed by the pruner.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sonora",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sonora",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		TokensIssuedTotal,
		TokenRedemptionsTotal,
		LoginsTotal,
		UsersCreatedTotal,
		TokensPrunedTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics plus the health endpoints on the internal port.
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
	if result.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}
