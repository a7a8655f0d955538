package kvstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJSONStore(t *testing.T, path string) *JSONStore {
	t.Helper()
	result := NewJSONStore(path)
	require.True(t, result.IsOk(), "open json store: %v", result)
	return result.Unwrap()
}

func TestJSONStorePersistsAcrossReopen(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "data", "tally-state.json")

	store := openJSONStore(t, path)
	require.True(t, store.Set(ctx, "count", "7").IsOk())
	require.True(t, store.Set(ctx, "totalCount", "115").IsOk())
	assert.True(t, store.LastSaved().IsSome())
	require.NoError(t, store.Close(ctx))

	reopened := openJSONStore(t, path)
	assertValue(t, ctx, reopened, "count", "7")
	assertValue(t, ctx, reopened, "totalCount", "115")
}

func TestJSONStoreFileFormat(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "tally-state.json")

	store := openJSONStore(t, path)
	require.True(t, store.Set(ctx, "round", "2").IsOk())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc stateFile
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, stateFileVersion, doc.Version)
	assert.Equal(t, map[string]string{"round": "2"}, doc.Values)
	assert.False(t, doc.UpdatedAt.IsZero())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")
}

func TestJSONStoreCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally-state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := openJSONStore(t, path)
	assert.True(t, store.Get(t.Context(), "count").Unwrap().IsNone())
}

func TestJSONStoreWriteFailureRollsBack(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()
	path := filepath.Join(dir, "tally-state.json")

	store := openJSONStore(t, path)
	require.True(t, store.Set(ctx, "count", "1").IsOk())

	// A directory squatting on the temp path makes the write fail.
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	result := store.Set(ctx, "count", "2")
	require.True(t, result.IsErr())
	assertValue(t, ctx, store, "count", "1")

	require.True(t, store.Remove(ctx, "count").IsErr())
	assertValue(t, ctx, store, "count", "1")
}
