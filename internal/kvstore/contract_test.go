package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
)

// runStoreContract checks the behaviour every backend must share.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := t.Context()

	t.Run("absent key is None", func(t *testing.T) {
		got := store.Get(ctx, "count")
		require.True(t, got.IsOk(), "get: %v", got)
		assert.True(t, got.Unwrap().IsNone())
	})

	t.Run("set then get", func(t *testing.T) {
		require.True(t, store.Set(ctx, "count", "42").IsOk())
		require.True(t, store.Set(ctx, "round", "3").IsOk())

		assertValue(t, ctx, store, "count", "42")
		assertValue(t, ctx, store, "round", "3")
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.True(t, store.Set(ctx, "count", "43").IsOk())
		assertValue(t, ctx, store, "count", "43")
	})

	t.Run("remove", func(t *testing.T) {
		require.True(t, store.Remove(ctx, "count").IsOk())
		assert.True(t, store.Get(ctx, "count").Unwrap().IsNone())
		assertValue(t, ctx, store, "round", "3")
	})

	t.Run("remove absent key succeeds", func(t *testing.T) {
		assert.True(t, store.Remove(ctx, "never-set").IsOk())
	})

	t.Run("empty key is a validation error", func(t *testing.T) {
		get := store.Get(ctx, "")
		require.True(t, get.IsErr())
		assert.True(t, errors.HasCategory(get.UnwrapErr(), errors.CategoryValidation))

		set := store.Set(ctx, "", "1")
		require.True(t, set.IsErr())
		assert.True(t, errors.HasCategory(set.UnwrapErr(), errors.CategoryValidation))

		rm := store.Remove(ctx, "")
		require.True(t, rm.IsErr())
		assert.True(t, errors.HasCategory(rm.UnwrapErr(), errors.CategoryValidation))
	})
}

func assertValue(t *testing.T, ctx context.Context, store Store, key, want string) {
	t.Helper()
	got := store.Get(ctx, key)
	require.True(t, got.IsOk(), "get %s: %v", key, got)
	value, ok := got.Unwrap().Get()
	require.True(t, ok, "expected %s to be present", key)
	assert.Equal(t, want, value)
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestJSONStoreContract(t *testing.T) {
	result := NewJSONStore(t.TempDir() + "/tally-state.json")
	require.True(t, result.IsOk())
	runStoreContract(t, result.Unwrap())
}

func TestSQLiteStoreContract(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close(t.Context()) }()

	runStoreContract(t, store)
}

func TestNATSStoreContract(t *testing.T) {
	runStoreContract(t, newNATSStoreWithBucket(newFakeBucket(), defaultTestTimeout))
}
