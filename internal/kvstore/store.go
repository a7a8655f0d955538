package kvstore

import (
	"context"

	"git.home.luguber.info/inful/malacounter/internal/foundation"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
)

// Store is the persistence contract consumed by the tally state machine.
type Store interface {
	// Get returns the stored value, or None when the key is absent.
	Get(ctx context.Context, key string) foundation.Result[foundation.Option[string], error]

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) foundation.Result[struct{}, error]

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) foundation.Result[struct{}, error]

	// Close releases resources held by the store.
	Close(ctx context.Context) error
}

func validateKey(key string) error {
	if key == "" {
		return errors.ValidationError("key cannot be empty").Build()
	}
	return nil
}

func missing() foundation.Result[foundation.Option[string], error] {
	return foundation.Ok[foundation.Option[string], error](foundation.None[string]())
}

func found(value string) foundation.Result[foundation.Option[string], error] {
	return foundation.Ok[foundation.Option[string], error](foundation.Some(value))
}

func getFailed(err error) foundation.Result[foundation.Option[string], error] {
	return foundation.Err[foundation.Option[string], error](err)
}
