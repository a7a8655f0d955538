package commands

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/message"

	"git.home.luguber.info/inful/malacounter/internal/config"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/logfields"
	"git.home.luguber.info/inful/malacounter/internal/metrics"
	"git.home.luguber.info/inful/malacounter/internal/resync"
	"git.home.luguber.info/inful/malacounter/internal/retry"
	"git.home.luguber.info/inful/malacounter/internal/tally"
)

const sessionHelp = "Enter or + count a bead, - steps back, r resets, q quits."

// SessionCmd implements the 'session' command.
type SessionCmd struct {
	NoMetrics bool `name:"no-metrics" help:"Do not serve metrics even when enabled in the config"`
}

func (s *SessionCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	configureLogging(g, cfg, root.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := openApp(ctx, g, cfg, appOptions{metrics: !s.NoMetrics})
	if err != nil {
		return err
	}
	defer closeQuietly(context.Background(), rt)

	sched, err := resync.NewScheduler(resync.WithLogger(g.Logger), resync.WithBackoff(retry.FromConfig(cfg.Resync)))
	if err != nil {
		return err
	}
	if _, err := sched.ScheduleFlush(ctx, cfg.Resync.Interval, rt.counter); err != nil {
		return err
	}
	sched.Start()
	defer func() { _ = sched.Stop() }()

	if rt.registry != nil {
		stop := serveMetrics(cfg.Metrics, rt.registry, g.Logger)
		defer stop()
	}

	p := newPrinter(cfg)
	rt.counter.Notices().Listen(func(n tally.Notice) {
		_, _ = fmt.Fprintln(g.Out, completionLine(p, n.Round))
	})
	return runSession(ctx, g.In, g.Out, rt.counter, p)
}

// runSession reads one command per line until q, EOF or ctx is done.
func runSession(ctx context.Context, in io.Reader, out io.Writer, c *tally.Counter, p *message.Printer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	printState := func() {
		line := stateLine(p, c.State())
		if c.Dirty() {
			line += "  (unsaved)"
		}
		_, _ = fmt.Fprintln(out, line)
	}

	_, _ = fmt.Fprintln(out, sessionHelp)
	printState()
	confirming := false
	for {
		if !confirming {
			_, _ = fmt.Fprint(out, "> ")
		}
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				_, _ = fmt.Fprintln(out)
				if err := <-scanErr; err != nil {
					return errors.WrapError(err, errors.CategoryRuntime, "read session input").Build()
				}
				return nil
			}
			cmd := strings.ToLower(strings.TrimSpace(line))

			if confirming {
				confirming = false
				if cmd == "y" || cmd == "yes" {
					c.Reset(ctx)
					_, _ = fmt.Fprintln(out, "Counter reset.")
				} else {
					_, _ = fmt.Fprintln(out, "Reset cancelled.")
				}
				printState()
				continue
			}

			switch cmd {
			case "", "+":
				c.Increment(ctx)
				printState()
			case "-":
				c.Decrement(ctx)
				printState()
			case "r":
				confirming = true
				_, _ = fmt.Fprint(out, "Reset count, round and total? [y/N] ")
			case "q", "quit", "exit":
				return nil
			case "?", "h", "help":
				_, _ = fmt.Fprintln(out, sessionHelp)
			default:
				_, _ = fmt.Fprintf(out, "Unknown command %q. %s\n", line, sessionHelp)
			}
		}
	}
}

// serveMetrics exposes reg on cfg.Address and returns a shutdown func.
func serveMetrics(cfg config.MetricsConfig, reg *prom.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.HTTPHandler(reg))
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics", logfields.Addr(cfg.Address), logfields.Path(cfg.Path))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", logfields.Addr(cfg.Address), logfields.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server shutdown failed", logfields.Error(err))
		}
	}
}
