package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks Store

// Store persists opaque documents by key.
type Store interface {
	// Load returns the document saved under key or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the document saved under key.
	Save(ctx context.Context, key string, data []byte) error
	// Close releases the backend's resources.
	Close() error
}

var (
	// ErrNotFound is returned when nothing has been saved under a key yet.
	ErrNotFound = errors.New("state not found")
	// errEmptyKey is returned for an empty key.
	errEmptyKey = errors.New("state key is empty")
	// errInvalidKey is returned for keys that could escape their namespace.
	errInvalidKey = errors.New("state key is invalid")
)

// Key joins a namespace and an identity into a store key.
func Key(namespace, id string) string {
	if namespace == "" {
		return id
	}

	return namespace + "/" + id
}

// checkKey rejects keys no backend can store safely.
func checkKey(key string) error {
	if key == "" {
		return errEmptyKey
	}

	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", errInvalidKey, key)
		}
	}

	return nil
}

// Repository stores values of type T as JSON documents under a namespace.
type Repository[T any] struct {
	// store is the underlying backend.
	store Store
	// namespace prefixes every key, e.g. "entity".
	namespace string
}

// NewRepository creates a typed repository over store.
func NewRepository[T any](store Store, namespace string) *Repository[T] {
	return &Repository[T]{
		store:     store,
		namespace: namespace,
	}
}

// Load decodes the value saved for id.
func (r *Repository[T]) Load(ctx context.Context, id string) (*T, error) {
	data, err := r.store.Load(ctx, Key(r.namespace, id))
	if err != nil {
		return nil, err
	}

	value := new(T)
	if err := json.Unmarshal(data, value); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Key(r.namespace, id), err)
	}

	return value, nil
}

// Save encodes and stores value for id.
func (r *Repository[T]) Save(ctx context.Context, id string, value *T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", Key(r.namespace, id), err)
	}

	return r.store.Save(ctx, Key(r.namespace, id), data)
}
