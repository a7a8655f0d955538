package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/malacounter/internal/foundation"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/logfields"
)

const stateFileVersion = 1

// stateFile is the on-disk document.
type stateFile struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Values    map[string]string `json:"values"`
}

// JSONStore persists all keys in a single JSON file. Every write rewrites
// the file through a temporary file and rename so readers never see a
// partial document.
type JSONStore struct {
	path      string
	mu        sync.RWMutex
	values    map[string]string
	lastSaved *time.Time
}

// NewJSONStore opens (or creates) the state file at path. An unreadable or
// corrupt file yields an empty store and a warning rather than an error.
func NewJSONStore(path string) foundation.Result[*JSONStore, error] {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return foundation.Err[*JSONStore, error](
			errors.FileSystemError("failed to create data directory").
				WithCause(err).
				WithContext("path", filepath.Dir(path)).
				Build(),
		)
	}

	store := &JSONStore{
		path:   path,
		values: make(map[string]string),
	}
	if err := store.loadFromDisk(); err != nil {
		slog.Warn("Ignoring unreadable state file", logfields.Path(path), logfields.Error(err))
	}
	return foundation.Ok[*JSONStore, error](store)
}

// Path returns the state file location.
func (js *JSONStore) Path() string { return js.path }

func (js *JSONStore) Get(_ context.Context, key string) foundation.Result[foundation.Option[string], error] {
	if err := validateKey(key); err != nil {
		return getFailed(err)
	}

	js.mu.RLock()
	defer js.mu.RUnlock()

	if v, ok := js.values[key]; ok {
		return found(v)
	}
	return missing()
}

func (js *JSONStore) Set(_ context.Context, key, value string) foundation.Result[struct{}, error] {
	if err := validateKey(key); err != nil {
		return foundation.Fail(err)
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	previous, existed := js.values[key]
	js.values[key] = value
	if err := js.saveToDiskUnsafe(); err != nil {
		if existed {
			js.values[key] = previous
		} else {
			delete(js.values, key)
		}
		return foundation.Fail(errors.StorageError("failed to save state file").
			WithCause(err).
			WithContext("key", key).
			Build())
	}
	return foundation.Done()
}

func (js *JSONStore) Remove(_ context.Context, key string) foundation.Result[struct{}, error] {
	if err := validateKey(key); err != nil {
		return foundation.Fail(err)
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	previous, existed := js.values[key]
	if !existed {
		return foundation.Done()
	}
	delete(js.values, key)
	if err := js.saveToDiskUnsafe(); err != nil {
		js.values[key] = previous
		return foundation.Fail(errors.StorageError("failed to save state file").
			WithCause(err).
			WithContext("key", key).
			Build())
	}
	return foundation.Done()
}

// Close performs a final save.
func (js *JSONStore) Close(context.Context) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if err := js.saveToDiskUnsafe(); err != nil {
		return errors.StorageError("failed to save during close").WithCause(err).Build()
	}
	return nil
}

// LastSaved reports when the file was last written by this store.
func (js *JSONStore) LastSaved() foundation.Option[time.Time] {
	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.lastSaved == nil {
		return foundation.None[time.Time]()
	}
	return foundation.Some(*js.lastSaved)
}

func (js *JSONStore) loadFromDisk() error {
	data, err := os.ReadFile(js.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var doc stateFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if doc.Values != nil {
		maps.Copy(js.values, doc.Values)
	}
	return nil
}

// saveToDiskUnsafe writes the document; callers hold js.mu.
func (js *JSONStore) saveToDiskUnsafe() error {
	now := time.Now()
	doc := stateFile{
		Version:   stateFileVersion,
		UpdatedAt: now,
		Values:    js.values,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempPath := js.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}
	if err := os.Rename(tempPath, js.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	js.lastSaved = &now
	return nil
}
