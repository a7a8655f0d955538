// Package errors provides the classified error type used by malacounter's
// infrastructure: stores, the journal, configuration and the CLI.
//
// Counting operations themselves never fail; these errors describe the
// surrounding machinery (opening a SQLite file, reaching a NATS server,
// parsing a config file) and carry enough classification for the CLI to
// choose an exit code and for callers to decide whether a retry makes sense.
//
// Example usage:
//
//	err := errors.StorageError("open sqlite store").
//		WithContext("path", path).
//		WithCause(openErr).
//		Build()
package errors
