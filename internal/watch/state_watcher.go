// Package watch follows the JSON state file so a counter driven from one
// process can be mirrored in another.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/malacounter/internal/foundation"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/kvstore"
	"git.home.luguber.info/inful/malacounter/internal/logfields"
	"git.home.luguber.info/inful/malacounter/internal/tally"
)

// DefaultDebounce collapses the write and rename of one commit into a single reload.
const DefaultDebounce = 100 * time.Millisecond

// Handler receives every state that differs from the previously reported one.
type Handler func(tally.State)

// StateWatcher monitors the state file and reports external changes.
type StateWatcher struct {
	statePath    string
	handler      Handler
	watcher      *fsnotify.Watcher
	logger       *slog.Logger
	debounceTime time.Duration

	mu         sync.Mutex
	last       foundation.Option[tally.State]
	stopChan   chan struct{}
	reloadChan chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// Option configures a StateWatcher.
type Option func(*StateWatcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *StateWatcher) {
		if d > 0 {
			w.debounceTime = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *StateWatcher) { w.logger = l }
}

// NewStateWatcher creates a watcher for the state file at statePath.
func NewStateWatcher(statePath string, handler Handler, opts ...Option) (*StateWatcher, error) {
	absPath, err := filepath.Abs(statePath)
	if err != nil {
		return nil, errors.FileSystemError("failed to resolve state path").
			WithCause(err).WithContext("path", statePath).Build()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.FileSystemError("failed to create file watcher").WithCause(err).Build()
	}

	w := &StateWatcher{
		statePath:    absPath,
		handler:      handler,
		watcher:      watcher,
		logger:       slog.Default(),
		debounceTime: DefaultDebounce,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start reports the current state once, then watches for changes until ctx
// is done or Stop is called.
func (w *StateWatcher) Start(ctx context.Context) error {
	// Watch the directory; the store replaces the file by rename.
	dir := filepath.Dir(w.statePath)
	if err := w.watcher.Add(dir); err != nil {
		return errors.FileSystemError("failed to watch state directory").
			WithCause(err).WithContext("path", dir).Build()
	}
	w.logger.Info("Watching tally state", logfields.Path(w.statePath))

	if _, err := w.Reload(ctx); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
	return nil
}

// Stop ends both loops and closes the file watcher. It is safe to call twice.
func (w *StateWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

// Reload reads the state file and reports it to the handler if it changed.
func (w *StateWatcher) Reload(ctx context.Context) (tally.State, error) {
	res := kvstore.NewJSONStore(w.statePath)
	if res.IsErr() {
		return tally.Zero, res.UnwrapErr()
	}
	// The store is only read. Closing it would rewrite the file.
	state := tally.Load(ctx, res.Unwrap(), w.logger)

	w.mu.Lock()
	prev, seen := w.last.Get()
	changed := !seen || prev != state
	w.last = foundation.Some(state)
	w.mu.Unlock()

	if changed && w.handler != nil {
		w.handler(state)
	}
	return state, nil
}

func (w *StateWatcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	name := filepath.Base(w.statePath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				w.logger.Debug("State file change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				w.triggerReload()
			case event.Has(fsnotify.Remove):
				w.logger.Info("State file removed", logfields.Path(event.Name))
				w.triggerReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("State watcher error", logfields.Error(err))
		}
	}
}

func (w *StateWatcher) reloadLoop(ctx context.Context) {
	defer w.wg.Done()
	var timer *time.Timer
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-w.stopChan:
			stop()
			return
		case <-w.reloadChan:
			stop()
			timer = time.AfterFunc(w.debounceTime, func() {
				if _, err := w.Reload(ctx); err != nil {
					w.logger.Error("Failed to reload tally state", logfields.Error(err))
				}
			})
		}
	}
}

func (w *StateWatcher) triggerReload() {
	select {
	case w.reloadChan <- struct{}{}:
	default:
	}
}
