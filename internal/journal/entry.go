package journal

import (
	"time"

	"git.home.luguber.info/inful/malacounter/internal/tally"
)

// Entry is one journaled transition.
type Entry struct {
	ID        int64
	SessionID string
	Op        tally.Op
	Before    tally.State
	After     tally.State
	Completed bool
	Timestamp time.Time
}

// EntryFrom builds an unsaved entry for t.
func EntryFrom(sessionID string, t tally.Transition) Entry {
	return Entry{
		SessionID: sessionID,
		Op:        t.Op,
		Before:    t.Before,
		After:     t.After,
		Completed: t.Completed,
	}
}

// Summary aggregates entries over a time window.
type Summary struct {
	Since       time.Time
	Increments  int
	Decrements  int
	Resets      int
	Completions int
	Sessions    int
}

// Net is increments minus decrements.
func (s Summary) Net() int {
	return s.Increments - s.Decrements
}
