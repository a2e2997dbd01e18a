package blob

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("blob: object not found")
	ErrUnknownBackend = errors.New("blob: unknown store kind")
)

// ObjectStore is the flat key/value store the vault is reconciled against.
// Implementations treat every failure alike; callers never retry on a specific error class.
type ObjectStore interface {
	// List returns every key starting with prefix. An empty prefix lists the whole store.
	List(ctx context.Context, prefix string) ([]string, error)

	// Get returns the object content. found is false when the key does not exist.
	Get(ctx context.Context, key string) (content []byte, found bool, err error)

	// Put writes content at key, replacing any existing object.
	Put(ctx context.Context, key string, content []byte, contentType string) error

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New constructs the store described by cfg. A nil config yields a nil store.
func New(cfg *Config) (ObjectStore, error) {
	if cfg == nil {
		return nil, nil
	}

	switch cfg.Kind {
	case KindNone:
		return nil, nil
	case KindS3:
		store, err := NewS3Store(cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case KindHTTP:
		store, err := NewHTTPStore(cfg.HTTP)
		if err != nil {
			return nil, err
		}
		return store, nil
	case KindMemory:
		return NewMemoryStore(), nil
	default:
		return nil, ErrUnknownBackend
	}
}
