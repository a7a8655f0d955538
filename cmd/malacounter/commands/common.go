package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"git.home.luguber.info/inful/malacounter/internal/config"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/logfields"
)

// Global carries process-wide handles shared by every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
	In     io.Reader
}

// NewGlobal wires stdin/stdout.
func NewGlobal() *Global {
	return &Global{Logger: slog.Default(), Out: os.Stdout, In: os.Stdin}
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (optional)" default:"malacounter.yaml" env:"MALACOUNTER_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	DataDir string           `name:"data-dir" help:"Override storage.data_dir" type:"path"`
	Backend string           `help:"Override storage.backend (memory, json, sqlite, nats)"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Show    ShowCmd    `cmd:"" default:"1" help:"Print the current count, round and total"`
	Inc     IncCmd     `cmd:"" help:"Advance the counter"`
	Dec     DecCmd     `cmd:"" help:"Step the counter back"`
	Reset   ResetCmd   `cmd:"" help:"Zero the counter and clear persisted state"`
	Session SessionCmd `cmd:"" help:"Interactive counting session"`
	Watch   WatchCmd   `cmd:"" help:"Follow state changes made by another process (json backend)"`
	History HistoryCmd `cmd:"" help:"Show journaled transitions"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)
	return nil
}

// LoadConfig reads the config file, or defaults when it does not exist,
// then applies flag overrides.
func (c *CLI) LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.Config)
	if err != nil {
		return nil, err
	}
	if c.DataDir != "" {
		cfg.Storage.DataDir = c.DataDir
	}
	if c.Backend != "" {
		cfg.Storage.Backend = config.NormalizeBackend(c.Backend)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureLogging applies the configured level and format. -v always wins.
func configureLogging(g *Global, cfg *config.Config, verbose bool) {
	level := cfg.Logging.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	g.Logger = slog.New(handler)
	slog.SetDefault(g.Logger)
}

// newPrinter formats numbers for the configured locale.
func newPrinter(cfg *config.Config) *message.Printer {
	tag, err := language.Parse(cfg.Display.Locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

func requirePositive(flag string, n int) error {
	if n < 1 {
		return errors.ValidationError(flag+" must be at least 1").WithContext("value", n).Build()
	}
	return nil
}

func closeQuietly(ctx context.Context, rt *app) {
	if err := rt.Close(ctx); err != nil {
		rt.logger.Warn("Failed to close counter", logfields.Error(err))
	}
}
