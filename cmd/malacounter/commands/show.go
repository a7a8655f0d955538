package commands

import (
	"context"
	"encoding/json"

	"golang.org/x/text/message"

	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
)

// ShowCmd implements the 'show' command.
type ShowCmd struct {
	JSON bool `help:"Print the state as JSON using the persisted key names"`
}

func (s *ShowCmd) Run(g *Global, root *CLI) error {
	return withCounter(g, root, appOptions{}, func(_ context.Context, rt *app, p *message.Printer) error {
		state := rt.counter.State()
		if !s.JSON {
			writeState(g.Out, p, state)
			return nil
		}
		enc := json.NewEncoder(g.Out)
		if err := enc.Encode(state); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "encode state").Build()
		}
		return nil
	})
}
