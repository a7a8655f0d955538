// Package journal keeps an append-only SQLite log of committed tally
// transitions. Entries are grouped by a per-process session id and can be
// listed or summarized for the history command.
//
// The journal is informational. Nothing reads it back into the counter.
package journal
