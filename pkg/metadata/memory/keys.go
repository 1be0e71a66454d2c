package memory

import (
	"context"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// GetKey returns the key record with the given fingerprint id.
func (s *MemoryMetadataStore) GetKey(_ context.Context, keyID string) (*metadata.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[keyID]
	if !ok {
		return nil, metadata.NewError(metadata.ErrNotFound, "key not found", "")
	}
	return cloneKey(key), nil
}

// AddKey stores a new key record.
func (s *MemoryMetadataStore) AddKey(_ context.Context, key *metadata.Key) (*metadata.Key, error) {
	if key.ID == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "key id must not be empty", "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key.ID]; ok {
		return nil, metadata.NewError(metadata.ErrAlreadyExists, "key already registered", "")
	}

	s.keys[key.ID] = cloneKey(key)
	return cloneKey(key), nil
}
