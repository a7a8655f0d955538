package tally

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/kvstore"
	"git.home.luguber.info/inful/malacounter/internal/logfields"
	"git.home.luguber.info/inful/malacounter/internal/metrics"
)

// Journal receives every transition that changed the state.
type Journal interface {
	Record(ctx context.Context, t Transition) error
}

// Counter is the stateful tally. It owns the in-memory state and is the only
// writer of the persisted keys.
type Counter struct {
	mu       sync.Mutex
	state    State
	store    kvstore.Store
	notices  *Notifier
	recorder metrics.Recorder
	journal  Journal
	logger   *slog.Logger
	backend  string

	// dirty is set when the last commit failed; pendingOp decides whether
	// Flush writes or removes the keys.
	dirty     bool
	pendingOp Op
}

// Option configures a Counter.
type Option func(*Counter)

// WithNotifier sets the notifier that receives round completions.
func WithNotifier(n *Notifier) Option {
	return func(c *Counter) { c.notices = n }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Counter) { c.recorder = r }
}

// WithJournal sets the transition journal.
func WithJournal(j Journal) Option {
	return func(c *Counter) { c.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Counter) { c.logger = l }
}

// WithBackendName labels persistence metrics and logs.
func WithBackendName(name string) Option {
	return func(c *Counter) { c.backend = name }
}

// New loads the persisted state from store and returns a ready Counter.
// Loading never fails; see Load.
func New(ctx context.Context, store kvstore.Store, opts ...Option) *Counter {
	c := &Counter{
		store:    store,
		recorder: metrics.NoopRecorder{},
		backend:  "store",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.notices == nil {
		c.notices = NewNotifier(nil, 0)
	}
	if c.recorder == nil {
		c.recorder = metrics.NoopRecorder{}
	}
	c.state = Load(ctx, store, c.logger)
	c.recorder.SetState(c.state.Count, c.state.Round, c.state.Total)
	c.logger.Debug("Tally state loaded", logfields.Backend(c.backend),
		logfields.Count(c.state.Count), logfields.Round(c.state.Round), logfields.Total(c.state.Total))
	return c
}

// Increment advances one bead and returns the new state.
func (c *Counter) Increment(ctx context.Context) State {
	return c.apply(ctx, OpIncrement)
}

// Decrement steps back one bead and returns the new state. At (0, 0) it
// does nothing and persists nothing.
func (c *Counter) Decrement(ctx context.Context) State {
	return c.apply(ctx, OpDecrement)
}

// Reset zeroes the state and removes the persisted keys.
func (c *Counter) Reset(ctx context.Context) State {
	return c.apply(ctx, OpReset)
}

// State returns the current in-memory state.
func (c *Counter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dirty reports whether the current state has not been committed.
func (c *Counter) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Notices returns the completion notifier.
func (c *Counter) Notices() *Notifier {
	return c.notices
}

// Flush re-commits the current state after a failed commit. It is a no-op
// when nothing is pending.
func (c *Counter) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := c.commitLocked(ctx, c.pendingOp); err != nil {
		return err
	}
	c.dirty = false
	c.logger.Info("Pending tally state committed", logfields.Backend(c.backend), logfields.Count(c.state.Count),
		logfields.Round(c.state.Round), logfields.Total(c.state.Total))
	return nil
}

// Close stops the notifier timer. The store is owned by the caller.
func (c *Counter) Close() {
	c.notices.Close()
}

func (c *Counter) apply(ctx context.Context, op Op) State {
	c.mu.Lock()
	t := Next(c.state, op)
	if !t.Changed() && op != OpReset {
		c.mu.Unlock()
		c.logger.Debug("Operation left state unchanged", logfields.Op(string(op)))
		return t.After
	}
	c.state = t.After
	c.recorder.IncOperation(string(op))
	c.recorder.SetState(t.After.Count, t.After.Round, t.After.Total)

	if err := c.commitLocked(ctx, op); err != nil {
		c.dirty = true
		c.pendingOp = op
		c.logger.Warn("Failed to persist tally state, will retry", logfields.Op(string(op)),
			logfields.Backend(c.backend), logfields.Error(err))
	} else {
		c.dirty = false
	}

	if c.journal != nil && t.Changed() {
		if err := c.journal.Record(ctx, t); err != nil {
			c.logger.Warn("Failed to journal transition", logfields.Op(string(op)), logfields.Error(err))
		}
	}
	c.mu.Unlock()

	if t.Completed {
		c.recorder.IncCompletion()
		c.notices.Post(t.After.Round)
		c.logger.Info("Round completed", logfields.Round(t.After.Round), logfields.Total(t.After.Total))
	}
	return t.After
}

// commitLocked writes the current state, or removes every key after a reset.
// Callers hold c.mu.
func (c *Counter) commitLocked(ctx context.Context, op Op) error {
	start := time.Now()
	var err error
	if op == OpReset {
		err = c.removeAll(ctx)
	} else {
		err = c.writeAll(ctx)
	}
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailed
		c.recorder.IncPersistFailure(c.backend)
	}
	c.recorder.ObservePersistDuration(c.backend, time.Since(start), outcome)
	return err
}

func (c *Counter) writeAll(ctx context.Context) error {
	values := Encode(c.state)
	for _, key := range Keys {
		if res := c.store.Set(ctx, key, values[key]); res.IsErr() {
			return errors.WrapError(res.UnwrapErr(), errors.CategoryStorage, "persist tally state").
				WithContext("key", key).Build()
		}
	}
	return nil
}

func (c *Counter) removeAll(ctx context.Context) error {
	for _, key := range Keys {
		if res := c.store.Remove(ctx, key); res.IsErr() {
			return errors.WrapError(res.UnwrapErr(), errors.CategoryStorage, "clear tally state").
				WithContext("key", key).Build()
		}
	}
	return nil
}
