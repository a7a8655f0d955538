package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/malacounter/internal/config"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/kvstore"
	"git.home.luguber.info/inful/malacounter/internal/tally"
)

type testEnv struct {
	cli *CLI
	g   *Global
	out *bytes.Buffer
	dir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	out := &bytes.Buffer{}
	return &testEnv{
		cli: &CLI{Config: filepath.Join(dir, "missing.yaml"), DataDir: filepath.Join(dir, "data")},
		g:   &Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Out: out, In: strings.NewReader("")},
		out: out,
		dir: dir,
	}
}

func (e *testEnv) statePath() string {
	return filepath.Join(e.cli.DataDir, config.StateFileName)
}

func (e *testEnv) seed(t *testing.T, s tally.State) {
	t.Helper()
	res := kvstore.NewJSONStore(e.statePath())
	require.True(t, res.IsOk())
	store := res.Unwrap()
	for k, v := range tally.Encode(s) {
		require.True(t, store.Set(context.Background(), k, v).IsOk())
	}
}

func (e *testEnv) load(t *testing.T) tally.State {
	t.Helper()
	res := kvstore.NewJSONStore(e.statePath())
	require.True(t, res.IsOk())
	return tally.Load(context.Background(), res.Unwrap(), nil)
}

func (e *testEnv) writeConfig(t *testing.T, body string) {
	t.Helper()
	e.cli.Config = filepath.Join(e.dir, "malacounter.yaml")
	require.NoError(t, os.WriteFile(e.cli.Config, []byte(body), 0o644))
}

func TestIncPrintsCompletionAndPersists(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, (&IncCmd{N: 110}).Run(env.g, env.cli))

	out := env.out.String()
	assert.Contains(t, out, "Round 1 completed!")
	assert.Contains(t, out, "2/108  round 1  total 110")
	assert.Equal(t, tally.State{Count: 2, Round: 1, Total: 110}, env.load(t))
}

func TestIncRejectsNonPositiveN(t *testing.T) {
	env := newTestEnv(t)
	err := (&IncCmd{N: 0}).Run(env.g, env.cli)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestDecStopsAtFloor(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, tally.State{Count: 1, Round: 0, Total: 1})

	require.NoError(t, (&DecCmd{N: 5}).Run(env.g, env.cli))
	assert.Contains(t, env.out.String(), "0/108  round 0  total 0")
	assert.Equal(t, tally.Zero, env.load(t))
}

func TestDecCrossesRoundBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, tally.State{Count: 0, Round: 1, Total: 108})

	require.NoError(t, (&DecCmd{N: 1}).Run(env.g, env.cli))
	assert.Equal(t, tally.State{Count: 107, Round: 0, Total: 107}, env.load(t))
}

func TestResetRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, tally.State{Count: 5, Round: 2, Total: 221})

	err := (&ResetCmd{}).Run(env.g, env.cli)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Equal(t, tally.State{Count: 5, Round: 2, Total: 221}, env.load(t))

	require.NoError(t, (&ResetCmd{Yes: true}).Run(env.g, env.cli))
	assert.Contains(t, env.out.String(), "Reset from 5/108  round 2  total 221")
	assert.Equal(t, tally.Zero, env.load(t))
}

func TestShowGroupsNumbersByLocale(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, tally.State{Count: 17, Round: 114, Total: 12329})

	require.NoError(t, (&ShowCmd{}).Run(env.g, env.cli))
	out := env.out.String()
	assert.Contains(t, out, "Beads: 17/108")
	assert.Contains(t, out, "Round: 114")
	assert.Contains(t, out, "Total: 12,329")
}

func TestShowJSONUsesPersistedKeyNames(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, tally.State{Count: 5, Round: 2, Total: 221})

	require.NoError(t, (&ShowCmd{JSON: true}).Run(env.g, env.cli))
	var got map[string]int
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &got))
	assert.Equal(t, map[string]int{"count": 5, "round": 2, "totalCount": 221}, got)
}

func TestSessionLoop(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, tally.State{Count: 106, Total: 106})
	env.g.In = strings.NewReader("\n+\n-\nbogus\nr\nn\nr\ny\nq\n+\n")

	require.NoError(t, (&SessionCmd{}).Run(env.g, env.cli))
	out := env.out.String()
	assert.Contains(t, out, "106/108  round 0  total 106")
	assert.Contains(t, out, "Round 1 completed!")
	assert.Contains(t, out, "0/108  round 1  total 108")
	assert.Contains(t, out, "Unknown command \"bogus\"")
	assert.Contains(t, out, "Reset cancelled.")
	assert.Contains(t, out, "Counter reset.")
	// Input after q is ignored.
	assert.Equal(t, tally.Zero, env.load(t))
}

func TestSessionEndsOnEOF(t *testing.T) {
	env := newTestEnv(t)
	env.g.In = strings.NewReader("+\n+")

	require.NoError(t, (&SessionCmd{}).Run(env.g, env.cli))
	assert.Equal(t, tally.State{Count: 2, Total: 2}, env.load(t))
}

func TestHistoryShowsJournaledTransitions(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "journal:\n  enabled: true\n")

	require.NoError(t, (&IncCmd{N: 3}).Run(env.g, env.cli))
	require.NoError(t, (&DecCmd{N: 1}).Run(env.g, env.cli))
	env.out.Reset()

	require.NoError(t, (&HistoryCmd{Limit: 10}).Run(env.g, env.cli))
	out := env.out.String()
	assert.Contains(t, out, "increment")
	assert.Contains(t, out, "decrement")
	assert.Contains(t, out, "3 increments, 1 decrements, 0 resets, 0 rounds completed (net 2, 2 sessions)")
}

func TestHistoryWithoutJournal(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, (&HistoryCmd{Limit: 5}).Run(env.g, env.cli))
	assert.Contains(t, env.out.String(), "No journal at")
}

func TestInitWritesConfigOnce(t *testing.T) {
	env := newTestEnv(t)
	env.cli.Config = filepath.Join(env.dir, "conf", "malacounter.yaml")

	require.NoError(t, (&InitCmd{}).Run(env.g, env.cli))
	assert.FileExists(t, env.cli.Config)
	assert.Contains(t, env.out.String(), "initialized successfully")

	err := (&InitCmd{}).Run(env.g, env.cli)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	require.NoError(t, (&InitCmd{Force: true}).Run(env.g, env.cli))
}

func TestWatchRequiresJSONBackend(t *testing.T) {
	env := newTestEnv(t)
	env.cli.Backend = "memory"

	err := (&WatchCmd{}).Run(env.g, env.cli)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestUnknownBackendIsConfigError(t *testing.T) {
	env := newTestEnv(t)
	env.cli.Backend = "etcd"

	err := (&ShowCmd{}).Run(env.g, env.cli)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestKongParsesCommands(t *testing.T) {
	env := newTestEnv(t)
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("malacounter"), kong.Bind(env.g), kong.Vars{"version": "test"})
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"-c", env.cli.Config, "--data-dir", env.cli.DataDir, "inc", "-n", "3"})
	require.NoError(t, err)
	assert.Equal(t, "inc", ctx.Command())
	require.NoError(t, ctx.Run(env.g, cli))
	assert.Equal(t, tally.State{Count: 3, Total: 3}, env.load(t))

	ctx, err = parser.Parse([]string{"-c", env.cli.Config, "--data-dir", env.cli.DataDir})
	require.NoError(t, err)
	assert.Equal(t, "show", ctx.Command())
}
