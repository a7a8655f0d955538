package journal

import (
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.JournalError("could not open journal database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.JournalError("failed to initialize journal schema").Build()

	// ErrAppendFailed indicates appending an entry failed.
	ErrAppendFailed = errors.JournalError("failed to append journal entry").Build()

	// ErrQueryFailed indicates querying entries failed.
	ErrQueryFailed = errors.JournalError("failed to query journal").Build()
)

func wrap(sentinel *errors.ClassifiedError, err error) error {
	return errors.WrapError(err, errors.CategoryJournal, sentinel.Message()).
		WithSeverity(sentinel.Severity()).Build()
}
