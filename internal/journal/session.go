package journal

import (
	"context"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/malacounter/internal/tally"
)

// SessionRecorder journals transitions under one session id. It satisfies
// tally.Journal.
type SessionRecorder struct {
	store     Store
	sessionID string
}

// NewSessionRecorder starts a new session with a random id.
func NewSessionRecorder(store Store) *SessionRecorder {
	return &SessionRecorder{store: store, sessionID: uuid.NewString()}
}

// SessionID returns the id stamped on every entry.
func (r *SessionRecorder) SessionID() string { return r.sessionID }

// Record appends t to the journal.
func (r *SessionRecorder) Record(ctx context.Context, t tally.Transition) error {
	_, err := r.store.Append(ctx, EntryFrom(r.sessionID, t))
	return err
}

var _ tally.Journal = (*SessionRecorder)(nil)
