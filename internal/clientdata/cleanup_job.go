package clientdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var cacheEntriesEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "desk_response_cache_evicted_total",
	Help: "Expired response cache entries removed by the cleanup job.",
}, []string{"table"})

// LiveSession reports the scenario currently open in the desk.
type LiveSession interface {
	SessionID() string
}

// CleanupJob evicts expired cached responses. Entries of the live session are
// kept past their expiry: they are the only fallback when the decision service
// is unreachable.
type CleanupJob struct {
	repo *Repository
	live LiveSession
	log  zerolog.Logger
}

// NewCleanupJob creates the response cache cleanup job. live may be nil.
func NewCleanupJob(repo *Repository, live LiveSession, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		live: live,
		log:  log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run evicts expired entries of every scenario but the live one.
func (j *CleanupJob) Run() error {
	var keep []string
	if j.live != nil {
		if id := j.live.SessionID(); id != "" {
			keep = append(keep, id)
		}
	}

	results, err := j.repo.DeleteAllExpired(keep...)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to evict expired responses")
		return err
	}

	var evicted int64
	for table, count := range results {
		if count == 0 {
			continue
		}
		cacheEntriesEvicted.WithLabelValues(table).Add(float64(count))
		evicted += count
	}
	if evicted > 0 {
		j.log.Info().Int64("evicted", evicted).Strs("kept", keep).Msg("Response cache cleaned")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
