package ticks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syntheticTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "desk_ticks_synthetic_total",
		Help: "Ticks fabricated client-side for decision responses without an id",
	})

	serverFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "desk_ticks_server_fetch_failures_total",
		Help: "Tick list fetches that fell back to the last known good list",
	})
)
