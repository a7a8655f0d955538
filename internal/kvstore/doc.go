// Package kvstore implements the key-value persistence contract the tally
// state machine writes through.
//
// Values are opaque strings. A missing key is reported as None rather than
// an error, and removing a missing key succeeds. Four backends are provided:
//   - MemoryStore: process-local map, used by tests and the memory backend
//   - JSONStore: one JSON document written atomically via temp file + rename
//   - SQLiteStore: a kv table in a modernc.org/sqlite database
//   - NATSStore: a JetStream key-value bucket
package kvstore
