package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/malacounter/internal/config"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/tally"
	"git.home.luguber.info/inful/malacounter/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period before re-reading the state file" default:"100ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	configureLogging(g, cfg, root.Verbose)
	if cfg.Storage.Backend != config.BackendJSON {
		return errors.ValidationError("watch requires the json storage backend").
			WithContext("backend", string(cfg.Storage.Backend)).Build()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p := newPrinter(cfg)
	sw, err := watch.NewStateWatcher(cfg.StatePath(), func(s tally.State) {
		_, _ = fmt.Fprintln(g.Out, stateLine(p, s))
	}, watch.WithDebounce(w.Debounce), watch.WithLogger(g.Logger))
	if err != nil {
		return err
	}
	if err := sw.Start(ctx); err != nil {
		_ = sw.Stop()
		return err
	}
	<-ctx.Done()
	return sw.Stop()
}
