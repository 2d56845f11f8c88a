package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// TickRefresher re-fetches the live session's tick history and clock.
type TickRefresher interface {
	RefreshTicks(ctx context.Context) error
}

// RefreshTicksJob pulls ticks recorded by the remote side so they appear
// without user action.
type RefreshTicksJob struct {
	refresher TickRefresher
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRefreshTicksJob creates the job. Each run is bounded by timeout.
func NewRefreshTicksJob(refresher TickRefresher, timeout time.Duration, log zerolog.Logger) *RefreshTicksJob {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &RefreshTicksJob{
		refresher: refresher,
		timeout:   timeout,
		log:       log.With().Str("job", "refresh_ticks").Logger(),
	}
}

// Name returns the job name
func (j *RefreshTicksJob) Name() string {
	return "refresh_ticks"
}

// Run refreshes once. A failed fetch keeps the last known good history and
// is reported as a job failure.
func (j *RefreshTicksJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	err := j.refresher.RefreshTicks(ctx)
	if err != nil && errors.Is(err, context.Canceled) {
		j.log.Debug().Msg("Refresh cancelled")
		return nil
	}
	return err
}
