package badger

import (
	"context"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/pathutil"
)

// EnsureRootFolder returns the owner's root folder, creating it on first use.
func (s *BadgerMetadataStore) EnsureRootFolder(_ context.Context, ownerID string) (*metadata.Folder, error) {
	if ownerID == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "owner id must not be empty", "")
	}

	var root *metadata.Folder
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		root, err = ensureRootTxn(txn, ownerID)
		return err
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return root, nil
}

// FindFolder returns the folder at the exact canonical path.
func (s *BadgerMetadataStore) FindFolder(_ context.Context, ownerID, path string) (*metadata.Folder, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	var folder *metadata.Folder
	err = s.db.View(func(txn *badger.Txn) error {
		folder, err = folderAtTxn(txn, ownerID, canonical)
		return err
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return folder, nil
}

// CreateFolder creates a single folder; the parent must already exist.
func (s *BadgerMetadataStore) CreateFolder(_ context.Context, ownerID, path string) (*metadata.Folder, error) {
	parentPath, name, err := pathutil.Split(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}
	if name == "" {
		return nil, metadata.NewError(metadata.ErrAlreadyExists, "root folder already exists", pathutil.Root)
	}

	var folder *metadata.Folder
	err = s.db.Update(func(txn *badger.Txn) error {
		parentID, found, err := getID(txn, keyFolderPath(ownerID, parentPath))
		if err != nil {
			return err
		}
		if !found {
			return metadata.NewError(metadata.ErrParentNotFound, "parent folder not found", parentPath)
		}

		var parent metadata.Folder
		if _, err := getJSON(txn, keyFolder(parentID), &parent); err != nil {
			return err
		}

		folder, err = createChildTxn(txn, &parent, name)
		return err
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return folder, nil
}

// CreateFolderPath creates every missing folder along path, reusing existing
// ones. The operation is idempotent.
func (s *BadgerMetadataStore) CreateFolderPath(_ context.Context, ownerID, path string) (*metadata.Folder, error) {
	components, err := pathutil.Components(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}
	if ownerID == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "owner id must not be empty", path)
	}

	var leaf *metadata.Folder
	err = s.db.Update(func(txn *badger.Txn) error {
		current, err := ensureRootTxn(txn, ownerID)
		if err != nil {
			return err
		}

		for _, name := range components {
			childID, found, err := getID(txn, keyFolderChild(current.ID, name))
			if err != nil {
				return err
			}
			if found {
				var child metadata.Folder
				if _, err := getJSON(txn, keyFolder(childID), &child); err != nil {
					return err
				}
				current = &child
				continue
			}

			current, err = createChildTxn(txn, current, name)
			if err != nil {
				return err
			}
		}
		leaf = current
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return leaf, nil
}

// RenameFolder changes the folder's name and updates the cached paths of the
// whole subtree.
func (s *BadgerMetadataStore) RenameFolder(_ context.Context, ownerID, path, newName string) (*metadata.Folder, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}
	if newName == "" || strings.Contains(newName, pathutil.Separator) {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "invalid folder name", newName)
	}

	var renamed *metadata.Folder
	err = s.db.Update(func(txn *badger.Txn) error {
		folder, err := folderAtTxn(txn, ownerID, canonical)
		if err != nil {
			return err
		}
		if folder.IsRoot() {
			return metadata.NewError(metadata.ErrInvalidArgument, "cannot rename the root folder", canonical)
		}
		if folder.Name == newName {
			renamed = folder
			return nil
		}

		taken, err := nameTakenTxn(txn, folder.ParentID, newName)
		if err != nil {
			return err
		}
		if taken {
			return metadata.NewError(metadata.ErrAlreadyExists, "name already taken", newName)
		}

		var parent metadata.Folder
		if _, err := getJSON(txn, keyFolder(folder.ParentID), &parent); err != nil {
			return err
		}

		if err := txn.Delete(keyFolderChild(folder.ParentID, folder.Name)); err != nil {
			return err
		}
		if err := txn.Set(keyFolderChild(folder.ParentID, newName), []byte(folder.ID)); err != nil {
			return err
		}
		folder.Name = newName

		if err := rebaseSubtreeTxn(txn, folder, pathutil.Join(parent.FullPath, newName)); err != nil {
			return err
		}
		renamed = folder
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return renamed, nil
}

// MoveFolder reparents the folder at path under the folder at destination.
func (s *BadgerMetadataStore) MoveFolder(_ context.Context, ownerID, path, destination string) (*metadata.Folder, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}
	destCanonical, err := pathutil.Normalize(destination)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), destination)
	}

	var moved *metadata.Folder
	err = s.db.Update(func(txn *badger.Txn) error {
		folder, err := folderAtTxn(txn, ownerID, canonical)
		if err != nil {
			return err
		}
		if folder.IsRoot() {
			return metadata.NewError(metadata.ErrInvalidArgument, "cannot move the root folder", canonical)
		}
		if pathutil.IsWithin(destCanonical, canonical) {
			return metadata.NewError(metadata.ErrInvalidDestination,
				"destination lies inside the folder being moved", destCanonical)
		}

		dest, err := folderAtTxn(txn, ownerID, destCanonical)
		if err != nil {
			return err
		}
		if dest.ID == folder.ParentID {
			moved = folder
			return nil
		}

		taken, err := nameTakenTxn(txn, dest.ID, folder.Name)
		if err != nil {
			return err
		}
		if taken {
			return metadata.NewError(metadata.ErrAlreadyExists,
				"destination already contains an entry with this name", folder.Name)
		}

		if err := txn.Delete(keyFolderChild(folder.ParentID, folder.Name)); err != nil {
			return err
		}
		if err := txn.Set(keyFolderChild(dest.ID, folder.Name), []byte(folder.ID)); err != nil {
			return err
		}
		folder.ParentID = dest.ID

		if err := rebaseSubtreeTxn(txn, folder, pathutil.Join(dest.FullPath, folder.Name)); err != nil {
			return err
		}
		moved = folder
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	return moved, nil
}

// DeleteFolder removes the folder and every descendant folder and file row.
func (s *BadgerMetadataStore) DeleteFolder(_ context.Context, ownerID, path string) error {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		folder, err := folderAtTxn(txn, ownerID, canonical)
		if err != nil {
			return err
		}
		if folder.IsRoot() {
			return metadata.NewError(metadata.ErrInvalidArgument, "cannot delete the root folder", canonical)
		}

		if err := deleteSubtreeTxn(txn, folder); err != nil {
			return err
		}
		return txn.Delete(keyFolderChild(folder.ParentID, folder.Name))
	})
	return wrapTxnError(err)
}

// ListSubfolders returns the direct child folders of the folder at path,
// ordered by name.
func (s *BadgerMetadataStore) ListSubfolders(_ context.Context, ownerID, path string) ([]*metadata.Folder, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	var subfolders []*metadata.Folder
	err = s.db.View(func(txn *badger.Txn) error {
		folder, err := folderAtTxn(txn, ownerID, canonical)
		if err != nil {
			return err
		}

		children, err := childEntriesTxn(txn, keyFolderChildPrefix(folder.ID))
		if err != nil {
			return err
		}

		subfolders = make([]*metadata.Folder, 0, len(children))
		for _, child := range children {
			var sub metadata.Folder
			if _, err := getJSON(txn, keyFolder(child.id), &sub); err != nil {
				return err
			}
			subfolders = append(subfolders, &sub)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	sort.Slice(subfolders, func(i, j int) bool { return subfolders[i].Name < subfolders[j].Name })
	return subfolders, nil
}

// ListFiles returns the files directly owned by the folder at path, ordered
// by name.
func (s *BadgerMetadataStore) ListFiles(_ context.Context, ownerID, path string) ([]*metadata.File, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	var files []*metadata.File
	err = s.db.View(func(txn *badger.Txn) error {
		folder, err := folderAtTxn(txn, ownerID, canonical)
		if err != nil {
			return err
		}

		children, err := childEntriesTxn(txn, keyFileChildPrefix(folder.ID))
		if err != nil {
			return err
		}

		files = make([]*metadata.File, 0, len(children))
		for _, child := range children {
			var file metadata.File
			if _, err := getJSON(txn, keyFile(child.id), &file); err != nil {
				return err
			}
			files = append(files, &file)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxnError(err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ============================================================================
// Transaction helpers
// ============================================================================

// childEntry is one (name, id) pair read from a child index range scan.
type childEntry struct {
	name string
	id   string
}

// childEntriesTxn collects all child index entries under prefix. The result
// is materialized before returning so callers can mutate the same keys
// afterwards without fighting a live iterator.
func childEntriesTxn(txn *badger.Txn, prefix []byte) ([]childEntry, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var entries []childEntry
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		name := strings.TrimPrefix(string(item.Key()), string(prefix))
		value, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, childEntry{name: name, id: string(value)})
	}
	return entries, nil
}

// ensureRootTxn loads or creates the owner's root folder row.
func ensureRootTxn(txn *badger.Txn, ownerID string) (*metadata.Folder, error) {
	rootID, found, err := getID(txn, keyRoot(ownerID))
	if err != nil {
		return nil, err
	}
	if found {
		var root metadata.Folder
		if _, err := getJSON(txn, keyFolder(rootID), &root); err != nil {
			return nil, err
		}
		return &root, nil
	}

	root := &metadata.Folder{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Name:     "",
		FullPath: pathutil.Root,
	}
	if err := setJSON(txn, keyFolder(root.ID), root); err != nil {
		return nil, err
	}
	if err := txn.Set(keyRoot(ownerID), []byte(root.ID)); err != nil {
		return nil, err
	}
	if err := txn.Set(keyFolderPath(ownerID, pathutil.Root), []byte(root.ID)); err != nil {
		return nil, err
	}
	return root, nil
}

// folderAtTxn resolves a canonical path to a folder row, failing with
// ErrNotFound when absent.
func folderAtTxn(txn *badger.Txn, ownerID, canonical string) (*metadata.Folder, error) {
	id, found, err := getID(txn, keyFolderPath(ownerID, canonical))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, metadata.NewError(metadata.ErrNotFound, "folder not found", canonical)
	}

	var folder metadata.Folder
	if _, err := getJSON(txn, keyFolder(id), &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// nameTakenTxn reports whether parentID already has a child (folder or file)
// with the given name.
func nameTakenTxn(txn *badger.Txn, parentID, name string) (bool, error) {
	if _, found, err := getID(txn, keyFolderChild(parentID, name)); err != nil || found {
		return found, err
	}
	_, found, err := getID(txn, keyFileChild(parentID, name))
	return found, err
}

// createChildTxn inserts a new folder row under parent together with its
// path and child index entries.
func createChildTxn(txn *badger.Txn, parent *metadata.Folder, name string) (*metadata.Folder, error) {
	taken, err := nameTakenTxn(txn, parent.ID, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, metadata.NewError(metadata.ErrAlreadyExists,
			"an entry with this name already exists", pathutil.Join(parent.FullPath, name))
	}

	folder := &metadata.Folder{
		ID:       uuid.NewString(),
		OwnerID:  parent.OwnerID,
		ParentID: parent.ID,
		Name:     name,
		FullPath: pathutil.Join(parent.FullPath, name),
	}
	if err := setJSON(txn, keyFolder(folder.ID), folder); err != nil {
		return nil, err
	}
	if err := txn.Set(keyFolderPath(folder.OwnerID, folder.FullPath), []byte(folder.ID)); err != nil {
		return nil, err
	}
	if err := txn.Set(keyFolderChild(parent.ID, name), []byte(folder.ID)); err != nil {
		return nil, err
	}
	return folder, nil
}

// rebaseSubtreeTxn moves folder's cached full path to newPath and walks the
// subtree updating every descendant folder and file row together with the
// path indexes.
func rebaseSubtreeTxn(txn *badger.Txn, folder *metadata.Folder, newPath string) error {
	if err := txn.Delete(keyFolderPath(folder.OwnerID, folder.FullPath)); err != nil {
		return err
	}
	folder.FullPath = newPath
	if err := setJSON(txn, keyFolder(folder.ID), folder); err != nil {
		return err
	}
	if err := txn.Set(keyFolderPath(folder.OwnerID, newPath), []byte(folder.ID)); err != nil {
		return err
	}

	fileChildren, err := childEntriesTxn(txn, keyFileChildPrefix(folder.ID))
	if err != nil {
		return err
	}
	for _, child := range fileChildren {
		var file metadata.File
		if _, err := getJSON(txn, keyFile(child.id), &file); err != nil {
			return err
		}
		if err := txn.Delete(keyFilePath(folder.OwnerID, file.FullPath)); err != nil {
			return err
		}
		file.FullPath = pathutil.Join(newPath, child.name)
		if err := setJSON(txn, keyFile(child.id), &file); err != nil {
			return err
		}
		if err := txn.Set(keyFilePath(folder.OwnerID, file.FullPath), []byte(child.id)); err != nil {
			return err
		}
	}

	folderChildren, err := childEntriesTxn(txn, keyFolderChildPrefix(folder.ID))
	if err != nil {
		return err
	}
	for _, child := range folderChildren {
		var sub metadata.Folder
		if _, err := getJSON(txn, keyFolder(child.id), &sub); err != nil {
			return err
		}
		if err := rebaseSubtreeTxn(txn, &sub, pathutil.Join(newPath, child.name)); err != nil {
			return err
		}
	}
	return nil
}

// deleteSubtreeTxn removes folder and all of its descendants. The caller is
// responsible for detaching folder from its parent's child index.
func deleteSubtreeTxn(txn *badger.Txn, folder *metadata.Folder) error {
	fileChildren, err := childEntriesTxn(txn, keyFileChildPrefix(folder.ID))
	if err != nil {
		return err
	}
	for _, child := range fileChildren {
		var file metadata.File
		if _, err := getJSON(txn, keyFile(child.id), &file); err != nil {
			return err
		}
		if err := txn.Delete(keyFilePath(folder.OwnerID, file.FullPath)); err != nil {
			return err
		}
		if err := txn.Delete(keyFile(child.id)); err != nil {
			return err
		}
		if err := txn.Delete(keyFileChild(folder.ID, child.name)); err != nil {
			return err
		}
	}

	folderChildren, err := childEntriesTxn(txn, keyFolderChildPrefix(folder.ID))
	if err != nil {
		return err
	}
	for _, child := range folderChildren {
		var sub metadata.Folder
		if _, err := getJSON(txn, keyFolder(child.id), &sub); err != nil {
			return err
		}
		if err := deleteSubtreeTxn(txn, &sub); err != nil {
			return err
		}
		if err := txn.Delete(keyFolderChild(folder.ID, child.name)); err != nil {
			return err
		}
	}

	if err := txn.Delete(keyFolderPath(folder.OwnerID, folder.FullPath)); err != nil {
		return err
	}
	return txn.Delete(keyFolder(folder.ID))
}
