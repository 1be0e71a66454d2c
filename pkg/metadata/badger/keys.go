package badger

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// GetKey returns the key record with the given fingerprint id.
func (s *BadgerMetadataStore) GetKey(_ context.Context, keyID string) (*metadata.Key, error) {
	var key metadata.Key

	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getJSON(txn, keyKey(keyID), &key)
		if err != nil {
			return err
		}
		if !found {
			return metadata.NewError(metadata.ErrNotFound, "key not found", "")
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return &key, nil
}

// AddKey stores a new key record.
func (s *BadgerMetadataStore) AddKey(_ context.Context, key *metadata.Key) (*metadata.Key, error) {
	if key.ID == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "key id must not be empty", "")
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var existing metadata.Key
		found, err := getJSON(txn, keyKey(key.ID), &existing)
		if err != nil {
			return err
		}
		if found {
			return metadata.NewError(metadata.ErrAlreadyExists, "key already registered", "")
		}
		return setJSON(txn, keyKey(key.ID), key)
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	copied := *key
	return &copied, nil
}
