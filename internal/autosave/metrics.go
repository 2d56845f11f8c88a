package autosave

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "desk_autosave_commits_total",
		Help: "Debounced draft commits by field and outcome (saved, error, discarded)",
	}, []string{"field", "result"})

	commitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desk_autosave_commit_duration_seconds",
		Help:    "Remote commit latency per draft field",
		Buckets: prometheus.DefBuckets,
	}, []string{"field"})
)
