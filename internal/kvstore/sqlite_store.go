package kvstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/malacounter/internal/foundation"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
)

// SQLiteStore keeps values in a single kv table.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens dbPath. Use ":memory:" for a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.StorageError("open sqlite database").WithCause(err).WithContext("path", dbPath).Build()
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.StorageError("initialize sqlite schema").WithCause(err).WithContext("path", dbPath).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) foundation.Result[foundation.Option[string], error] {
	if err := validateKey(key); err != nil {
		return getFailed(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return missing()
	case err != nil:
		return getFailed(errors.StorageError("query kv").WithCause(err).WithContext("key", key).Build())
	}
	return found(value)
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) foundation.Result[struct{}, error] {
	if err := validateKey(key); err != nil {
		return foundation.Fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return foundation.Fail(errors.StorageError("upsert kv").WithCause(err).WithContext("key", key).Build())
	}
	return foundation.Done()
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) foundation.Result[struct{}, error] {
	if err := validateKey(key); err != nil {
		return foundation.Fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return foundation.Fail(errors.StorageError("delete kv").WithCause(err).WithContext("key", key).Build())
	}
	return foundation.Done()
}

// Keys lists stored keys in sorted order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
