package kvstore

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/malacounter/internal/config"
	"git.home.luguber.info/inful/malacounter/internal/foundation"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
	"git.home.luguber.info/inful/malacounter/internal/logfields"
)

// bucket is the slice of jetstream.KeyValue the store needs.
type bucket interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	put(ctx context.Context, key string, value []byte) error
	delete(ctx context.Context, key string) error
}

type jetstreamBucket struct {
	kv jetstream.KeyValue
}

func (b jetstreamBucket) get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

func (b jetstreamBucket) put(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Put(ctx, key, value)
	return err
}

func (b jetstreamBucket) delete(ctx context.Context, key string) error {
	return b.kv.Delete(ctx, key)
}

// NATSStore keeps values in a JetStream key-value bucket.
type NATSStore struct {
	conn    *nats.Conn
	bucket  bucket
	timeout time.Duration
}

// NewNATSStore connects to cfg.URL and opens cfg.Bucket, creating it if needed.
func NewNATSStore(ctx context.Context, cfg config.NATSConfig) (*NATSStore, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("malacounter"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, errors.BrokerError("failed to connect to NATS").WithCause(err).WithContext("url", cfg.URL).Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.BrokerError("failed to create JetStream context").WithCause(err).Build()
	}

	kv, err := openBucket(ctx, js, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("NATS key-value store ready", logfields.Addr(cfg.URL), slog.String("bucket", cfg.Bucket))
	return &NATSStore{conn: conn, bucket: jetstreamBucket{kv: kv}, timeout: cfg.Timeout}, nil
}

func openBucket(ctx context.Context, js jetstream.JetStream, cfg config.NATSConfig) (jetstream.KeyValue, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if kv, err := js.KeyValue(ctx, cfg.Bucket); err == nil {
		return kv, nil
	}

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "malacounter tally state",
		History:     1,
	})
	if err != nil {
		return nil, errors.BrokerError("failed to create KV bucket").WithCause(err).WithContext("bucket", cfg.Bucket).Build()
	}
	slog.Info("Created KV bucket", slog.String("bucket", cfg.Bucket))
	return kv, nil
}

func newNATSStoreWithBucket(b bucket, timeout time.Duration) *NATSStore {
	return &NATSStore{bucket: b, timeout: timeout}
}

func (s *NATSStore) Get(ctx context.Context, key string) foundation.Result[foundation.Option[string], error] {
	if err := validateKey(key); err != nil {
		return getFailed(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	value, ok, err := s.bucket.get(ctx, key)
	if err != nil {
		return getFailed(errors.BrokerError("failed to get key").WithCause(err).WithContext("key", key).Build())
	}
	if !ok {
		return missing()
	}
	return found(string(value))
}

func (s *NATSStore) Set(ctx context.Context, key, value string) foundation.Result[struct{}, error] {
	if err := validateKey(key); err != nil {
		return foundation.Fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.bucket.put(ctx, key, []byte(value)); err != nil {
		return foundation.Fail(errors.BrokerError("failed to put key").WithCause(err).WithContext("key", key).Build())
	}
	return foundation.Done()
}

func (s *NATSStore) Remove(ctx context.Context, key string) foundation.Result[struct{}, error] {
	if err := validateKey(key); err != nil {
		return foundation.Fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.bucket.delete(ctx, key); err != nil && !stderrors.Is(err, jetstream.ErrKeyNotFound) {
		return foundation.Fail(errors.BrokerError("failed to delete key").WithCause(err).WithContext("key", key).Build())
	}
	return foundation.Done()
}

// Close drains the connection so pending puts are flushed.
func (s *NATSStore) Close(context.Context) error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return errors.BrokerError("failed to drain NATS connection").WithCause(err).Build()
	}
	return nil
}
