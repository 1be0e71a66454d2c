package badger

import (
	"context"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/pathutil"
)

// FindFile returns the file at the exact canonical path.
func (s *BadgerMetadataStore) FindFile(_ context.Context, ownerID, path string) (*metadata.File, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	var file *metadata.File
	err = s.db.View(func(txn *badger.Txn) error {
		file, err = fileAtTxn(txn, ownerID, canonical)
		return err
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return file, nil
}

// UpsertFile commits a file row after a confirmed backend upload. An existing
// row at the same path keeps its id; its storage assignment and size are
// overwritten.
func (s *BadgerMetadataStore) UpsertFile(_ context.Context, ownerID string, file *metadata.File) (*metadata.File, error) {
	parentPath, name, err := pathutil.Split(file.FullPath)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), file.FullPath)
	}
	if name == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "file path must not be the root", file.FullPath)
	}
	canonical := pathutil.Join(parentPath, name)

	var row *metadata.File
	err = s.db.Update(func(txn *badger.Txn) error {
		parent, err := folderAtTxn(txn, ownerID, parentPath)
		if err != nil {
			if metadata.IsCode(err, metadata.ErrNotFound) {
				return metadata.NewError(metadata.ErrParentNotFound, "parent folder not found", parentPath)
			}
			return err
		}
		if _, found, err := getID(txn, keyFolderChild(parent.ID, name)); err != nil {
			return err
		} else if found {
			return metadata.NewError(metadata.ErrAlreadyExists, "a folder occupies this path", canonical)
		}

		if existingID, found, err := getID(txn, keyFileChild(parent.ID, name)); err != nil {
			return err
		} else if found {
			var existing metadata.File
			if _, err := getJSON(txn, keyFile(existingID), &existing); err != nil {
				return err
			}
			existing.StorageID = file.StorageID
			existing.Size = file.Size
			existing.LastModified = time.Now().UTC()
			if err := setJSON(txn, keyFile(existingID), &existing); err != nil {
				return err
			}
			row = &existing
			return nil
		}

		created := metadata.File{
			ID:           file.ID,
			FolderID:     parent.ID,
			StorageID:    file.StorageID,
			Name:         name,
			FullPath:     canonical,
			Size:         file.Size,
			LastModified: time.Now().UTC(),
		}
		if created.ID == "" {
			created.ID = uuid.NewString()
		}
		if err := setJSON(txn, keyFile(created.ID), &created); err != nil {
			return err
		}
		if err := txn.Set(keyFilePath(ownerID, canonical), []byte(created.ID)); err != nil {
			return err
		}
		if err := txn.Set(keyFileChild(parent.ID, name), []byte(created.ID)); err != nil {
			return err
		}
		row = &created
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return row, nil
}

// DeleteFile removes the file row at path.
func (s *BadgerMetadataStore) DeleteFile(_ context.Context, ownerID, path string) error {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		file, err := fileAtTxn(txn, ownerID, canonical)
		if err != nil {
			return err
		}

		if err := txn.Delete(keyFileChild(file.FolderID, file.Name)); err != nil {
			return err
		}
		if err := txn.Delete(keyFilePath(ownerID, canonical)); err != nil {
			return err
		}
		return txn.Delete(keyFile(file.ID))
	})
	return wrapTxnError(err)
}

// CalculateUsedStorage sums the sizes of all files owned by ownerID by
// scanning the owner's file path index. The figure is always derived from
// the live rows, never cached.
func (s *BadgerMetadataStore) CalculateUsedStorage(_ context.Context, ownerID string) (int64, error) {
	var total int64
	err := s.db.View(func(txn *badger.Txn) error {
		entries, err := childEntriesTxn(txn, keyFilePathPrefix(ownerID))
		if err != nil {
			return err
		}
		for _, entry := range entries {
			var file metadata.File
			if _, err := getJSON(txn, keyFile(entry.id), &file); err != nil {
				return err
			}
			total += file.Size
		}
		return nil
	})
	if err != nil {
		return 0, wrapTxnError(err)
	}
	return total, nil
}

// fileAtTxn resolves a canonical path to a file row, failing with
// ErrNotFound when absent.
func fileAtTxn(txn *badger.Txn, ownerID, canonical string) (*metadata.File, error) {
	id, found, err := getID(txn, keyFilePath(ownerID, canonical))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, metadata.NewError(metadata.ErrNotFound, "file not found", canonical)
	}

	var file metadata.File
	if _, err := getJSON(txn, keyFile(id), &file); err != nil {
		return nil, err
	}
	return &file, nil
}
