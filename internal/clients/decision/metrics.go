package decision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "desk_decision_requests_total",
		Help: "Decision service requests by operation and status class",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desk_decision_request_duration_seconds",
		Help:    "Decision service round-trip time",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)
