package commands

import (
	"context"
	"io"

	"golang.org/x/text/message"

	"git.home.luguber.info/inful/malacounter/internal/tally"
)

func stateLine(p *message.Printer, s tally.State) string {
	return p.Sprintf("%d/%d  round %d  total %d", s.Count, tally.CycleLength, s.Round, s.Total)
}

func completionLine(p *message.Printer, round int) string {
	return p.Sprintf("Round %d completed!", round)
}

func writeState(w io.Writer, p *message.Printer, s tally.State) {
	_, _ = p.Fprintf(w, "Beads: %d/%d\n", s.Count, tally.CycleLength)
	_, _ = p.Fprintf(w, "Round: %d\n", s.Round)
	_, _ = p.Fprintf(w, "Total: %d\n", s.Total)
}

// withCounter loads config, opens the counter, runs fn and commits any
// pending state before returning.
func withCounter(g *Global, root *CLI, opts appOptions, fn func(ctx context.Context, rt *app, p *message.Printer) error) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	configureLogging(g, cfg, root.Verbose)

	ctx := context.Background()
	rt, err := openApp(ctx, g, cfg, opts)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx, rt)

	if err := fn(ctx, rt, newPrinter(cfg)); err != nil {
		return err
	}
	return rt.counter.Flush(ctx)
}
