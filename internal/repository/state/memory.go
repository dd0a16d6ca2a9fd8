package state

import (
	"bytes"
	"context"
	"sync"
)

// MemoryStore keeps documents in process memory. It survives actor
// deactivation but not a process restart.
type MemoryStore struct {
	// mu protects docs.
	mu sync.RWMutex
	// docs maps keys to private copies of saved documents.
	docs map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
	}
}

// Load returns a copy of the document saved under key.
func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}

	return bytes.Clone(data), nil
}

// Save stores a copy of data under key.
func (s *MemoryStore) Save(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = bytes.Clone(data)

	return nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs)
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
