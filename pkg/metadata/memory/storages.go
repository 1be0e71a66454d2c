package memory

import (
	"context"
	"sort"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// UpsertStorage creates or updates a storage node descriptor. The cached
// used_space of an existing row is preserved; configuration fields are
// overwritten.
func (s *MemoryMetadataStore) UpsertStorage(_ context.Context, storage *metadata.Storage) (*metadata.Storage, error) {
	if storage.ID == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "storage id must not be empty", "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.storages[storage.ID]; ok {
		existing.URL = storage.URL
		existing.Token = storage.Token
		existing.Capacity = storage.Capacity
		existing.Priority = storage.Priority
		return cloneStorage(existing), nil
	}

	s.storages[storage.ID] = cloneStorage(storage)
	return cloneStorage(storage), nil
}

// GetStorage returns the storage node with the given id.
func (s *MemoryMetadataStore) GetStorage(_ context.Context, storageID string) (*metadata.Storage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	storage, ok := s.storages[storageID]
	if !ok {
		return nil, metadata.NewError(metadata.ErrNotFound, "storage not found", "")
	}
	return cloneStorage(storage), nil
}

// ListStorages returns all storage node descriptors ordered by id.
func (s *MemoryMetadataStore) ListStorages(_ context.Context) ([]*metadata.Storage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	storages := make([]*metadata.Storage, 0, len(s.storages))
	for _, storage := range s.storages {
		storages = append(storages, cloneStorage(storage))
	}
	sort.Slice(storages, func(i, j int) bool { return storages[i].ID < storages[j].ID })
	return storages, nil
}

// SetStorageUsedSpace refreshes the cached usage figure for a node.
func (s *MemoryMetadataStore) SetStorageUsedSpace(_ context.Context, storageID string, used int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	storage, ok := s.storages[storageID]
	if !ok {
		return metadata.NewError(metadata.ErrNotFound, "storage not found", "")
	}
	storage.UsedSpace = used
	return nil
}
