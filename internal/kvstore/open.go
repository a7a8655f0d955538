package kvstore

import (
	"context"

	"git.home.luguber.info/inful/malacounter/internal/config"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
)

// Open builds the store selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendJSON:
		result := NewJSONStore(cfg.StatePath())
		if result.IsErr() {
			return nil, result.UnwrapErr()
		}
		return result.Unwrap(), nil
	case config.BackendSQLite:
		store, err := NewSQLiteStore(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendNATS:
		store, err := NewNATSStore(ctx, cfg.Storage.NATS)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.ConfigError("unknown storage backend").
			WithContext("backend", string(cfg.Storage.Backend)).
			Build()
	}
}
