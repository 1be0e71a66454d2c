package badger

import (
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// Rows are stored as JSON for debuggability and painless schema evolution;
// index values are raw id bytes.

// getJSON loads and unmarshals the value at key into out. The second return
// is false when the key does not exist.
func getJSON(txn *badger.Txn, key []byte, out any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	}); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// setJSON marshals v and stores it at key.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// decodeJSON unmarshals a raw value into out.
func decodeJSON(val []byte, out any) error {
	return json.Unmarshal(val, out)
}

// getID loads a raw id value from an index key. The second return is false
// when the key does not exist.
func getID(txn *badger.Txn, key []byte) (string, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	var id string
	if err := item.Value(func(val []byte) error {
		id = string(val)
		return nil
	}); err != nil {
		return "", false, err
	}
	return id, true, nil
}

// wrapTxnError converts a transaction result into the store's error taxonomy.
// Domain errors raised inside the transaction pass through untouched; anything
// else is a persistence failure and becomes ErrIOError.
func wrapTxnError(err error) error {
	if err == nil {
		return nil
	}
	var storeErr *metadata.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return metadata.NewError(metadata.ErrIOError, err.Error(), "")
}
