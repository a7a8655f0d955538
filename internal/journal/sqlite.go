package journal

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/malacounter/internal/tally"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	mu    sync.RWMutex
	clock clockwork.Clock
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock sets the clock used to timestamp entries.
func WithClock(c clockwork.Clock) Option {
	return func(s *SQLiteStore) { s.clock = c }
}

// NewSQLiteStore opens the journal at dbPath.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(ErrDatabaseOpenFailed, err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, wrap(ErrInitializeSchemaFailed, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		op TEXT NOT NULL,
		before_count INTEGER NOT NULL,
		before_round INTEGER NOT NULL,
		before_total INTEGER NOT NULL,
		after_count INTEGER NOT NULL,
		after_round INTEGER NOT NULL,
		after_total INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_session_id ON transitions(session_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON transitions(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds an entry to the journal.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Timestamp = s.clock.Now().UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transitions (session_id, op,
			before_count, before_round, before_total,
			after_count, after_round, after_total,
			completed, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, string(e.Op),
		e.Before.Count, e.Before.Round, e.Before.Total,
		e.After.Count, e.After.Round, e.After.Total,
		e.Completed, e.Timestamp.UnixMilli(),
	)
	if err != nil {
		return Entry{}, wrap(ErrAppendFailed, err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, wrap(ErrAppendFailed, err)
	}
	return e, nil
}

const selectEntries = `SELECT id, session_id, op,
	before_count, before_round, before_total,
	after_count, after_round, after_total,
	completed, timestamp FROM transitions`

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectEntries+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Range returns entries within [start, end], oldest first.
func (s *SQLiteStore) Range(ctx context.Context, start, end time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		selectEntries+" WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Summary aggregates every entry at or after since.
func (s *SQLiteStore) Summary(ctx context.Context, since time.Time) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{Since: since}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(op = ?), 0),
			COALESCE(SUM(op = ?), 0),
			COALESCE(SUM(op = ?), 0),
			COALESCE(SUM(completed), 0),
			COUNT(DISTINCT session_id)
		FROM transitions WHERE timestamp >= ?`,
		string(tally.OpIncrement), string(tally.OpDecrement), string(tally.OpReset), since.UnixMilli(),
	).Scan(&sum.Increments, &sum.Decrements, &sum.Resets, &sum.Completions, &sum.Sessions)
	if err != nil {
		return Summary{}, wrap(ErrQueryFailed, err)
	}
	return sum, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var op string
		var ts int64
		err := rows.Scan(&e.ID, &e.SessionID, &op,
			&e.Before.Count, &e.Before.Round, &e.Before.Total,
			&e.After.Count, &e.After.Round, &e.After.Total,
			&e.Completed, &ts)
		if err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		e.Op = tally.Op(op)
		e.Timestamp = time.UnixMilli(ts).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
