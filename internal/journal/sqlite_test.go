package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/malacounter/internal/tally"
)

func newTestStore(t *testing.T) (*SQLiteStore, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC))
	store, err := NewSQLiteStore(":memory:", WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func transition(op tally.Op, before tally.State) tally.Transition {
	return tally.Next(before, op)
}

func TestAppendAndRecent(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := t.Context()

	first, err := store.Append(ctx, EntryFrom("s1", transition(tally.OpIncrement, tally.State{Count: 107, Total: 107})))
	require.NoError(t, err)
	assert.Positive(t, first.ID)
	assert.Equal(t, clock.Now(), first.Timestamp)

	clock.Advance(time.Second)
	_, err = store.Append(ctx, EntryFrom("s1", transition(tally.OpDecrement, tally.State{Round: 1, Total: 108})))
	require.NoError(t, err)

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, tally.OpDecrement, entries[0].Op)
	assert.Equal(t, tally.State{Count: 107, Total: 107}, entries[0].After)

	assert.Equal(t, tally.OpIncrement, entries[1].Op)
	assert.True(t, entries[1].Completed)
	assert.Equal(t, tally.State{Count: 107, Total: 107}, entries[1].Before)
	assert.Equal(t, tally.State{Round: 1, Total: 108}, entries[1].After)
	assert.Equal(t, first.Timestamp, entries[1].Timestamp)
	assert.Equal(t, "s1", entries[1].SessionID)
}

func TestRecentLimit(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := t.Context()
	s := tally.Zero
	for range 5 {
		tr := transition(tally.OpIncrement, s)
		_, err := store.Append(ctx, EntryFrom("s1", tr))
		require.NoError(t, err)
		s = tr.After
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 5, entries[0].After.Count)
	assert.Equal(t, 4, entries[1].After.Count)

	none, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRange(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := t.Context()
	start := clock.Now()

	for range 3 {
		_, err := store.Append(ctx, EntryFrom("s1", transition(tally.OpIncrement, tally.Zero)))
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}

	entries, err := store.Range(ctx, start, start.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Less(t, entries[0].ID, entries[1].ID)

	all, err := store.Range(ctx, time.Time{}, clock.Now())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSummary(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := t.Context()

	_, err := store.Append(ctx, EntryFrom("old", transition(tally.OpIncrement, tally.Zero)))
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	since := clock.Now()

	s := tally.State{Count: 106, Total: 106}
	for _, op := range []tally.Op{tally.OpIncrement, tally.OpIncrement, tally.OpDecrement, tally.OpReset} {
		tr := transition(op, s)
		_, err := store.Append(ctx, EntryFrom("today", tr))
		require.NoError(t, err)
		s = tr.After
	}
	_, err = store.Append(ctx, EntryFrom("other", transition(tally.OpIncrement, tally.Zero)))
	require.NoError(t, err)

	sum, err := store.Summary(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Increments)
	assert.Equal(t, 1, sum.Decrements)
	assert.Equal(t, 1, sum.Resets)
	assert.Equal(t, 1, sum.Completions)
	assert.Equal(t, 2, sum.Sessions)
	assert.Equal(t, 2, sum.Net())
	assert.Equal(t, since, sum.Since)
}

func TestSummaryEmpty(t *testing.T) {
	store, clock := newTestStore(t)
	sum, err := store.Summary(t.Context(), clock.Now())
	require.NoError(t, err)
	assert.Zero(t, sum.Increments)
	assert.Zero(t, sum.Sessions)
}

func TestPersistentJournalReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := t.Context()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = store.Append(ctx, EntryFrom("s1", transition(tally.OpIncrement, tally.Zero)))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	entries, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppendAfterCloseIsClassified(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Append(t.Context(), EntryFrom("s1", transition(tally.OpIncrement, tally.Zero)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAppendFailed))
}
