// Package scheduler runs the desk's background jobs on cron schedules.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var (
	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "desk_job_runs_total",
		Help: "Background job runs by job and outcome.",
	}, []string{"job", "status"})
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desk_job_duration_seconds",
		Help:    "Background job run duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

// ErrUnknownJob is returned by RunNow for names that were never registered.
var ErrUnknownJob = errors.New("unknown job")

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]Job
	log  zerolog.Logger
}

// New creates a new scheduler. Schedules use the six-field (seconds) format.
// A run that is still going when its next slot arrives causes that slot to be
// skipped.
func New(log zerolog.Logger) *Scheduler {
	l := log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: l}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs: make(map[string]Job),
		log:  l,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "*/30 * * * * *"     - Every 30 seconds
//   - "0 30 0 * * *"       - Daily at 00:30
//   - "@every 5m"          - Every 5 minutes
func (s *Scheduler) AddJob(schedule string, job Job) error {
	if _, dup := s.jobs[job.Name()]; dup {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.run(job) }); err != nil {
		return fmt.Errorf("failed to register job %q: %w", job.Name(), err)
	}
	s.jobs[job.Name()] = job

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow executes a registered job immediately (outside schedule)
func (s *Scheduler) RunNow(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownJob, name)
	}
	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.run(job)
}

func (s *Scheduler) run(job Job) error {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	start := time.Now()
	err := job.Run()
	jobDuration.WithLabelValues(job.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		jobRuns.WithLabelValues(job.Name(), "error").Inc()
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Msg("Job failed")
		return err
	}
	jobRuns.WithLabelValues(job.Name(), "ok").Inc()
	s.log.Debug().Str("job", job.Name()).Dur("duration", time.Since(start)).Msg("Job completed")
	return nil
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
