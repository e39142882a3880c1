package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	authChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_checks_total",
			Help: "Bearer token verifications by outcome",
		},
		[]string{"outcome"},
	)
	tokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokens_issued_total",
			Help: "Tokens minted by kind",
		},
		[]string{"kind"},
	)
	revocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_revocations_total",
			Help: "Denylist inserts by trigger",
		},
		[]string{"trigger"},
	)
	revocationsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "token_revocations_pruned_total",
			Help: "Expired denylist entries removed by the pruner",
		},
	)
)

func initMetrics() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(authChecks)
	prometheus.MustRegister(tokensIssued)
	prometheus.MustRegister(revocationsTotal)
	prometheus.MustRegister(revocationsPruned)
}
