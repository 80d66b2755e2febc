package openai

import (
	"errors"
	"time"

	"snapcook-api/internal/core/ai/provider"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	externalCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapcook_external_calls_total",
			Help: "Total number of calls to the external inference service",
		},
		[]string{"operation", "outcome"},
	)

	externalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapcook_external_call_duration_seconds",
			Help:    "External inference call latency in seconds, retries included",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"operation"},
	)
)

func observeCall(operation string, d time.Duration, err error) {
	if operation == "" {
		operation = "generate"
	}
	externalCallsTotal.WithLabelValues(operation, outcome(err)).Inc()
	externalCallDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, provider.ErrTimeout):
		return "timeout"
	case errors.Is(err, provider.ErrAuth):
		return "auth"
	case errors.Is(err, provider.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, provider.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, provider.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, provider.ErrNetwork):
		return "network"
	default:
		return "upstream"
	}
}
