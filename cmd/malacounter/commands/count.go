package commands

import (
	"context"
	"fmt"

	"golang.org/x/text/message"

	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/tally"
)

// IncCmd implements the 'inc' command.
type IncCmd struct {
	N int `short:"n" default:"1" help:"Number of beads to advance"`
}

func (c *IncCmd) Run(g *Global, root *CLI) error {
	if err := requirePositive("-n", c.N); err != nil {
		return err
	}
	return withCounter(g, root, appOptions{}, func(ctx context.Context, rt *app, p *message.Printer) error {
		rt.counter.Notices().Listen(func(n tally.Notice) {
			_, _ = fmt.Fprintln(g.Out, completionLine(p, n.Round))
		})
		state := rt.counter.State()
		for range c.N {
			state = rt.counter.Increment(ctx)
		}
		_, _ = fmt.Fprintln(g.Out, stateLine(p, state))
		return nil
	})
}

// DecCmd implements the 'dec' command.
type DecCmd struct {
	N int `short:"n" default:"1" help:"Number of beads to step back"`
}

func (c *DecCmd) Run(g *Global, root *CLI) error {
	if err := requirePositive("-n", c.N); err != nil {
		return err
	}
	return withCounter(g, root, appOptions{}, func(ctx context.Context, rt *app, p *message.Printer) error {
		state := rt.counter.State()
		for range c.N {
			if state.AtFloor() {
				break
			}
			state = rt.counter.Decrement(ctx)
		}
		_, _ = fmt.Fprintln(g.Out, stateLine(p, state))
		return nil
	})
}

// ResetCmd implements the 'reset' command.
type ResetCmd struct {
	Yes bool `short:"y" help:"Confirm the reset"`
}

func (c *ResetCmd) Run(g *Global, root *CLI) error {
	if !c.Yes {
		return errors.ValidationError("refusing to reset without --yes").Build()
	}
	return withCounter(g, root, appOptions{}, func(ctx context.Context, rt *app, p *message.Printer) error {
		before := rt.counter.State()
		rt.counter.Reset(ctx)
		_, _ = p.Fprintf(g.Out, "Reset from %s\n", stateLine(p, before))
		return nil
	})
}
