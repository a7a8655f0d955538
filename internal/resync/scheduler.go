// Package resync retries tally commits that failed to reach the store.
package resync

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/logfields"
	"git.home.luguber.info/inful/malacounter/internal/retry"
)

// Flusher is satisfied by *tally.Counter.
type Flusher interface {
	Dirty() bool
	Flush(ctx context.Context) error
}

// Scheduler wraps gocron scheduler for managing periodic tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	backoff   *retry.Policy
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	backoff *retry.Policy
}

// WithClock runs jobs on c instead of the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackoff spaces out attempts after consecutive failures. Without it
// every tick retries.
func WithBackoff(p retry.Policy) Option {
	return func(o *options) { o.backoff = &p }
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	var schedOpts []gocron.SchedulerOption
	if o.clock != nil {
		schedOpts = append(schedOpts, gocron.WithClock(o.clock))
	}
	s, err := gocron.NewScheduler(schedOpts...)
	if err != nil {
		return nil, errors.RuntimeError("failed to create gocron scheduler").WithCause(err).Build()
	}
	return &Scheduler{scheduler: s, logger: o.logger, backoff: o.backoff}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Debug("Starting resync scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.logger.Debug("Stopping resync scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleFlush runs f.Flush every interval while f is dirty. Runs never
// overlap. Returns the job ID.
func (s *Scheduler) ScheduleFlush(ctx context.Context, interval time.Duration, f Flusher) (string, error) {
	if interval <= 0 {
		return "", errors.ValidationError("resync interval must be positive").
			WithContext("interval", interval.String()).Build()
	}
	fj := &flushJob{ctx: ctx, flusher: f, interval: interval, backoff: s.backoff, logger: s.logger}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fj.run),
		gocron.WithName("tally-resync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.RuntimeError("failed to create resync job").WithCause(err).Build()
	}
	return job.ID().String(), nil
}

// flushJob holds retry state for one flusher. gocron runs it in singleton
// mode, so run is never concurrent with itself.
type flushJob struct {
	ctx      context.Context
	flusher  Flusher
	interval time.Duration
	backoff  *retry.Policy
	logger   *slog.Logger

	failures int
	skip     int
}

// run is called by gocron on every tick.
func (j *flushJob) run() {
	if !j.flusher.Dirty() {
		j.failures, j.skip = 0, 0
		return
	}
	if j.skip > 0 {
		j.skip--
		return
	}
	start := time.Now()
	if err := j.flusher.Flush(j.ctx); err != nil {
		j.failures++
		j.skip = j.ticksToSkip()
		j.logger.Warn("Resync failed, will retry", slog.Int("failures", j.failures),
			slog.Int("skipped_ticks", j.skip), logfields.Error(err))
		return
	}
	j.logger.Info("Resync committed pending state", slog.Int("failures", j.failures),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	j.failures, j.skip = 0, 0
}

// ticksToSkip converts the backoff delay into whole ticks after the next one.
func (j *flushJob) ticksToSkip() int {
	if j.backoff == nil {
		return 0
	}
	delay := j.backoff.Delay(j.failures)
	ticks := int((delay + j.interval - 1) / j.interval)
	return max(ticks-1, 0)
}
