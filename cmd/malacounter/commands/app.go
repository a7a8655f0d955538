package commands

import (
	"context"
	stderrors "errors"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/malacounter/internal/config"
	"git.home.luguber.info/inful/malacounter/internal/journal"
	"git.home.luguber.info/inful/malacounter/internal/kvstore"
	"git.home.luguber.info/inful/malacounter/internal/logfields"
	"git.home.luguber.info/inful/malacounter/internal/metrics"
	"git.home.luguber.info/inful/malacounter/internal/tally"
)

// app bundles the components a command drives.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    kvstore.Store
	journal  journal.Store
	session  *journal.SessionRecorder
	registry *prom.Registry
	counter  *tally.Counter
}

type appOptions struct {
	metrics bool
}

// openRuntime opens the store and, when enabled, the journal, and loads the
// counter. A journal that cannot be opened is logged and skipped.
func openApp(ctx context.Context, g *Global, cfg *config.Config, opts appOptions) (*app, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rt := &app{cfg: cfg, logger: logger, store: store}
	counterOpts := []tally.Option{
		tally.WithLogger(logger),
		tally.WithBackendName(string(cfg.Storage.Backend)),
		tally.WithNotifier(tally.NewNotifier(nil, cfg.Notice.Duration)),
	}

	if cfg.Journal.Enabled {
		j, jerr := journal.NewSQLiteStore(cfg.JournalPath())
		if jerr != nil {
			logger.Warn("Journal unavailable, continuing without it", logfields.Path(cfg.JournalPath()), logfields.Error(jerr))
		} else {
			rt.journal = j
			rt.session = journal.NewSessionRecorder(j)
			counterOpts = append(counterOpts, tally.WithJournal(rt.session))
			logger.Debug("Journal opened", logfields.Path(cfg.JournalPath()), logfields.Session(rt.session.SessionID()))
		}
	}

	if opts.metrics && cfg.Metrics.Enabled {
		rt.registry = prom.NewRegistry()
		counterOpts = append(counterOpts, tally.WithRecorder(metrics.NewPrometheusRecorder(rt.registry)))
	}

	rt.counter = tally.New(ctx, store, counterOpts...)
	return rt, nil
}

// Close flushes pending state once more and releases the store and journal.
func (rt *app) Close(ctx context.Context) error {
	var errs []error
	if rt.counter != nil {
		if err := rt.counter.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
		rt.counter.Close()
	}
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := rt.store.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}
