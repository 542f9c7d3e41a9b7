package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payvault_http_requests_total",
		Help: "Total HTTP requests, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payvault_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	movementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payvault_movements_total",
		Help: "Balance-moving steps by flow and outcome",
	}, []string{"flow", "outcome"})
)
