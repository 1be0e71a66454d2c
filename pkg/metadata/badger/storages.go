package badger

import (
	"context"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// UpsertStorage creates or updates a storage node descriptor. The cached
// used_space of an existing row is preserved; configuration fields are
// overwritten.
func (s *BadgerMetadataStore) UpsertStorage(_ context.Context, storage *metadata.Storage) (*metadata.Storage, error) {
	if storage.ID == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "storage id must not be empty", "")
	}

	var row *metadata.Storage
	err := s.db.Update(func(txn *badger.Txn) error {
		var existing metadata.Storage
		found, err := getJSON(txn, keyStorage(storage.ID), &existing)
		if err != nil {
			return err
		}
		if found {
			existing.URL = storage.URL
			existing.Token = storage.Token
			existing.Capacity = storage.Capacity
			existing.Priority = storage.Priority
			if err := setJSON(txn, keyStorage(storage.ID), &existing); err != nil {
				return err
			}
			row = &existing
			return nil
		}

		copied := *storage
		if err := setJSON(txn, keyStorage(storage.ID), &copied); err != nil {
			return err
		}
		row = &copied
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return row, nil
}

// GetStorage returns the storage node with the given id.
func (s *BadgerMetadataStore) GetStorage(_ context.Context, storageID string) (*metadata.Storage, error) {
	var storage metadata.Storage
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getJSON(txn, keyStorage(storageID), &storage)
		if err != nil {
			return err
		}
		if !found {
			return metadata.NewError(metadata.ErrNotFound, "storage not found", "")
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return &storage, nil
}

// ListStorages returns all storage node descriptors ordered by id.
func (s *BadgerMetadataStore) ListStorages(_ context.Context) ([]*metadata.Storage, error) {
	var storages []*metadata.Storage
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyStoragePrefix()

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var storage metadata.Storage
			if err := it.Item().Value(func(val []byte) error {
				return decodeJSON(val, &storage)
			}); err != nil {
				return err
			}
			storages = append(storages, &storage)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	sort.Slice(storages, func(i, j int) bool { return storages[i].ID < storages[j].ID })
	return storages, nil
}

// SetStorageUsedSpace refreshes the cached usage figure for a node.
func (s *BadgerMetadataStore) SetStorageUsedSpace(_ context.Context, storageID string, used int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var storage metadata.Storage
		found, err := getJSON(txn, keyStorage(storageID), &storage)
		if err != nil {
			return err
		}
		if !found {
			return metadata.NewError(metadata.ErrNotFound, "storage not found", "")
		}
		storage.UsedSpace = used
		return setJSON(txn, keyStorage(storageID), &storage)
	})
	return wrapTxnError(err)
}
