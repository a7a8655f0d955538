package kvstore

import (
	"context"
	"maps"
	"sync"

	"git.home.luguber.info/inful/malacounter/internal/foundation"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
)

// MemoryStore keeps values in a map. Writes can be made to fail with
// FailWrites, which the tests use to exercise resync.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string]string
	writeErr error
	writes   int
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// NewMemoryStoreFrom seeds a store with initial values.
func NewMemoryStoreFrom(values map[string]string) *MemoryStore {
	s := NewMemoryStore()
	maps.Copy(s.values, values)
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) foundation.Result[foundation.Option[string], error] {
	if err := validateKey(key); err != nil {
		return getFailed(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.values[key]; ok {
		return found(v)
	}
	return missing()
}

func (s *MemoryStore) Set(_ context.Context, key, value string) foundation.Result[struct{}, error] {
	if err := validateKey(key); err != nil {
		return foundation.Fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return foundation.Fail(err)
	}
	s.values[key] = value
	s.writes++
	return foundation.Done()
}

func (s *MemoryStore) Remove(_ context.Context, key string) foundation.Result[struct{}, error] {
	if err := validateKey(key); err != nil {
		return foundation.Fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return foundation.Fail(err)
	}
	delete(s.values, key)
	s.writes++
	return foundation.Done()
}

func (s *MemoryStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// FailWrites makes every later Set and Remove fail with err. Pass nil to recover.
func (s *MemoryStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Snapshot returns a copy of the stored values.
func (s *MemoryStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// Writes counts successful Set and Remove calls.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) writable() error {
	if s.closed {
		return errors.StorageError("memory store is closed").Build()
	}
	if s.writeErr != nil {
		return errors.StorageError("memory store write failed").WithCause(s.writeErr).Build()
	}
	return nil
}
