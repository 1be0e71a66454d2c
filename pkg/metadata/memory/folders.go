package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/pathutil"
)

// EnsureRootFolder returns the owner's root folder, creating it on first use.
func (s *MemoryMetadataStore) EnsureRootFolder(_ context.Context, ownerID string) (*metadata.Folder, error) {
	if ownerID == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "owner id must not be empty", "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneFolder(s.ensureRootLocked(ownerID)), nil
}

// FindFolder returns the folder at the exact canonical path.
func (s *MemoryMetadataStore) FindFolder(_ context.Context, ownerID, path string) (*metadata.Folder, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folderAtLocked(ownerID, canonical)
	if !ok {
		return nil, metadata.NewError(metadata.ErrNotFound, "folder not found", canonical)
	}
	return cloneFolder(folder), nil
}

// CreateFolder creates a single folder; the parent must already exist.
func (s *MemoryMetadataStore) CreateFolder(_ context.Context, ownerID, path string) (*metadata.Folder, error) {
	parentPath, name, err := pathutil.Split(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}
	if name == "" {
		return nil, metadata.NewError(metadata.ErrAlreadyExists, "root folder already exists", pathutil.Root)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.folderAtLocked(ownerID, parentPath)
	if !ok {
		return nil, metadata.NewError(metadata.ErrParentNotFound, "parent folder not found", parentPath)
	}

	folder, err := s.createChildLocked(parent, name)
	if err != nil {
		return nil, err
	}
	return cloneFolder(folder), nil
}

// CreateFolderPath creates every missing folder along path, reusing existing
// ones. The operation is idempotent.
func (s *MemoryMetadataStore) CreateFolderPath(_ context.Context, ownerID, path string) (*metadata.Folder, error) {
	components, err := pathutil.Components(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}
	if ownerID == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "owner id must not be empty", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.ensureRootLocked(ownerID)
	for _, name := range components {
		if childID, ok := s.childFolders[current.ID][name]; ok {
			current = s.folders[childID]
			continue
		}

		child, err := s.createChildLocked(current, name)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return cloneFolder(current), nil
}

// RenameFolder changes the folder's name and updates the cached paths of the
// whole subtree.
func (s *MemoryMetadataStore) RenameFolder(_ context.Context, ownerID, path, newName string) (*metadata.Folder, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}
	if newName == "" || strings.Contains(newName, pathutil.Separator) {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "invalid folder name", newName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folderAtLocked(ownerID, canonical)
	if !ok {
		return nil, metadata.NewError(metadata.ErrNotFound, "folder not found", canonical)
	}
	if folder.IsRoot() {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "cannot rename the root folder", canonical)
	}
	if folder.Name == newName {
		return cloneFolder(folder), nil
	}
	if s.nameTakenLocked(folder.ParentID, newName) {
		return nil, metadata.NewError(metadata.ErrAlreadyExists, "name already taken", newName)
	}

	delete(s.childFolders[folder.ParentID], folder.Name)
	s.childFolders[folder.ParentID][newName] = folder.ID
	folder.Name = newName

	parent := s.folders[folder.ParentID]
	s.rebasePathsLocked(folder, pathutil.Join(parent.FullPath, newName))

	return cloneFolder(folder), nil
}

// MoveFolder reparents the folder at path under the folder at destination.
func (s *MemoryMetadataStore) MoveFolder(_ context.Context, ownerID, path, destination string) (*metadata.Folder, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}
	destCanonical, err := pathutil.Normalize(destination)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), destination)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folderAtLocked(ownerID, canonical)
	if !ok {
		return nil, metadata.NewError(metadata.ErrNotFound, "folder not found", canonical)
	}
	if folder.IsRoot() {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "cannot move the root folder", canonical)
	}
	if pathutil.IsWithin(destCanonical, canonical) {
		return nil, metadata.NewError(metadata.ErrInvalidDestination,
			"destination lies inside the folder being moved", destCanonical)
	}

	dest, ok := s.folderAtLocked(ownerID, destCanonical)
	if !ok {
		return nil, metadata.NewError(metadata.ErrNotFound, "destination folder not found", destCanonical)
	}
	if dest.ID == folder.ParentID {
		return cloneFolder(folder), nil
	}
	if s.nameTakenLocked(dest.ID, folder.Name) {
		return nil, metadata.NewError(metadata.ErrAlreadyExists,
			"destination already contains an entry with this name", folder.Name)
	}

	delete(s.childFolders[folder.ParentID], folder.Name)
	s.childFolders[dest.ID][folder.Name] = folder.ID
	folder.ParentID = dest.ID

	s.rebasePathsLocked(folder, pathutil.Join(dest.FullPath, folder.Name))

	return cloneFolder(folder), nil
}

// DeleteFolder removes the folder and every descendant folder and file row.
func (s *MemoryMetadataStore) DeleteFolder(_ context.Context, ownerID, path string) error {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folderAtLocked(ownerID, canonical)
	if !ok {
		return metadata.NewError(metadata.ErrNotFound, "folder not found", canonical)
	}
	if folder.IsRoot() {
		return metadata.NewError(metadata.ErrInvalidArgument, "cannot delete the root folder", canonical)
	}

	s.deleteSubtreeLocked(folder)
	delete(s.childFolders[folder.ParentID], folder.Name)
	return nil
}

// ListSubfolders returns the direct child folders of the folder at path,
// ordered by name.
func (s *MemoryMetadataStore) ListSubfolders(_ context.Context, ownerID, path string) ([]*metadata.Folder, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folderAtLocked(ownerID, canonical)
	if !ok {
		return nil, metadata.NewError(metadata.ErrNotFound, "folder not found", canonical)
	}

	subfolders := make([]*metadata.Folder, 0, len(s.childFolders[folder.ID]))
	for _, childID := range s.childFolders[folder.ID] {
		subfolders = append(subfolders, cloneFolder(s.folders[childID]))
	}
	sort.Slice(subfolders, func(i, j int) bool { return subfolders[i].Name < subfolders[j].Name })
	return subfolders, nil
}

// ListFiles returns the files directly owned by the folder at path, ordered
// by name.
func (s *MemoryMetadataStore) ListFiles(_ context.Context, ownerID, path string) ([]*metadata.File, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folderAtLocked(ownerID, canonical)
	if !ok {
		return nil, metadata.NewError(metadata.ErrNotFound, "folder not found", canonical)
	}

	files := make([]*metadata.File, 0, len(s.childFiles[folder.ID]))
	for _, fileID := range s.childFiles[folder.ID] {
		files = append(files, cloneFile(s.files[fileID]))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ensureRootLocked returns the owner's root folder, creating it if absent.
// Caller must hold the write lock.
func (s *MemoryMetadataStore) ensureRootLocked(ownerID string) *metadata.Folder {
	if rootID, ok := s.roots[ownerID]; ok {
		return s.folders[rootID]
	}

	root := &metadata.Folder{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Name:     "",
		FullPath: pathutil.Root,
	}
	s.folders[root.ID] = root
	s.roots[ownerID] = root.ID
	s.folderByPath[pathKey{ownerID, pathutil.Root}] = root.ID
	s.childFolders[root.ID] = make(map[string]string)
	s.childFiles[root.ID] = make(map[string]string)
	return root
}

// folderAtLocked resolves a canonical path to a folder row. Caller must hold
// at least the read lock.
func (s *MemoryMetadataStore) folderAtLocked(ownerID, canonical string) (*metadata.Folder, bool) {
	id, ok := s.folderByPath[pathKey{ownerID, canonical}]
	if !ok {
		return nil, false
	}
	return s.folders[id], true
}

// nameTakenLocked reports whether parentID already has a child (folder or
// file) with the given name.
func (s *MemoryMetadataStore) nameTakenLocked(parentID, name string) bool {
	if _, ok := s.childFolders[parentID][name]; ok {
		return true
	}
	_, ok := s.childFiles[parentID][name]
	return ok
}

// createChildLocked inserts a new folder under parent. Caller must hold the
// write lock.
func (s *MemoryMetadataStore) createChildLocked(parent *metadata.Folder, name string) (*metadata.Folder, error) {
	if s.nameTakenLocked(parent.ID, name) {
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
	s.folders[folder.ID] = folder
	s.folderByPath[pathKey{folder.OwnerID, folder.FullPath}] = folder.ID
	s.childFolders[parent.ID][name] = folder.ID
	s.childFolders[folder.ID] = make(map[string]string)
	s.childFiles[folder.ID] = make(map[string]string)
	return folder, nil
}

// rebasePathsLocked moves folder's cached full path to newPath and walks the
// subtree updating every descendant folder and file row together with the
// path indexes. Caller must hold the write lock.
func (s *MemoryMetadataStore) rebasePathsLocked(folder *metadata.Folder, newPath string) {
	delete(s.folderByPath, pathKey{folder.OwnerID, folder.FullPath})
	folder.FullPath = newPath
	s.folderByPath[pathKey{folder.OwnerID, newPath}] = folder.ID

	for name, fileID := range s.childFiles[folder.ID] {
		file := s.files[fileID]
		delete(s.fileByPath, pathKey{folder.OwnerID, file.FullPath})
		file.FullPath = pathutil.Join(newPath, name)
		s.fileByPath[pathKey{folder.OwnerID, file.FullPath}] = fileID
	}
	for name, childID := range s.childFolders[folder.ID] {
		s.rebasePathsLocked(s.folders[childID], pathutil.Join(newPath, name))
	}
}

// deleteSubtreeLocked removes folder and all of its descendants from the rows
// and indexes. The caller is responsible for detaching folder from its
// parent's child index. Caller must hold the write lock.
func (s *MemoryMetadataStore) deleteSubtreeLocked(folder *metadata.Folder) {
	for _, fileID := range s.childFiles[folder.ID] {
		file := s.files[fileID]
		delete(s.fileByPath, pathKey{folder.OwnerID, file.FullPath})
		delete(s.files, fileID)
	}
	for _, childID := range s.childFolders[folder.ID] {
		s.deleteSubtreeLocked(s.folders[childID])
	}

	delete(s.childFiles, folder.ID)
	delete(s.childFolders, folder.ID)
	delete(s.folderByPath, pathKey{folder.OwnerID, folder.FullPath})
	delete(s.folders, folder.ID)
}
