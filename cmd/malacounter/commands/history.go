package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/malacounter/internal/journal"
	"git.home.luguber.info/inful/malacounter/internal/tally"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" default:"20" help:"Number of entries to show"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	if err := requirePositive("--limit", h.Limit); err != nil {
		return err
	}
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	configureLogging(g, cfg, root.Verbose)

	path := cfg.JournalPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_, _ = fmt.Fprintf(g.Out, "No journal at %s. Set journal.enabled in the config to start one.\n", path)
		return nil
	}
	store, err := journal.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	entries, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	summary, err := store.Summary(ctx, midnight)
	if err != nil {
		return err
	}

	p := newPrinter(cfg)
	tw := tabwriter.NewWriter(g.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tOP\tBEFORE\tAFTER\t")
	for _, e := range entries {
		marker := ""
		if e.Completed {
			marker = "round completed"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Op, shortState(e.Before), shortState(e.After), marker)
	}
	_ = tw.Flush()

	_, _ = p.Fprintf(g.Out, "\nToday: %d increments, %d decrements, %d resets, %d rounds completed (net %d, %d sessions)\n",
		summary.Increments, summary.Decrements, summary.Resets, summary.Completions, summary.Net(), summary.Sessions)
	return nil
}

func shortState(s tally.State) string {
	return fmt.Sprintf("%d/%d r%d t%d", s.Count, tally.CycleLength, s.Round, s.Total)
}
