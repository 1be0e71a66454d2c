package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/pathutil"
)

// FindFile returns the file at the exact canonical path.
func (s *MemoryMetadataStore) FindFile(_ context.Context, ownerID, path string) (*metadata.File, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.fileByPath[pathKey{ownerID, canonical}]
	if !ok {
		return nil, metadata.NewError(metadata.ErrNotFound, "file not found", canonical)
	}
	return cloneFile(s.files[id]), nil
}

// UpsertFile commits a file row after a confirmed backend upload. An existing
// row at the same path keeps its id; its storage assignment and size are
// overwritten.
func (s *MemoryMetadataStore) UpsertFile(_ context.Context, ownerID string, file *metadata.File) (*metadata.File, error) {
	parentPath, name, err := pathutil.Split(file.FullPath)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), file.FullPath)
	}
	if name == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "file path must not be the root", file.FullPath)
	}
	canonical := pathutil.Join(parentPath, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.folderAtLocked(ownerID, parentPath)
	if !ok {
		return nil, metadata.NewError(metadata.ErrParentNotFound, "parent folder not found", parentPath)
	}
	if _, ok := s.childFolders[parent.ID][name]; ok {
		return nil, metadata.NewError(metadata.ErrAlreadyExists, "a folder occupies this path", canonical)
	}

	if existingID, ok := s.childFiles[parent.ID][name]; ok {
		existing := s.files[existingID]
		existing.StorageID = file.StorageID
		existing.Size = file.Size
		existing.LastModified = time.Now().UTC()
		return cloneFile(existing), nil
	}

	row := &metadata.File{
		ID:           file.ID,
		FolderID:     parent.ID,
		StorageID:    file.StorageID,
		Name:         name,
		FullPath:     canonical,
		Size:         file.Size,
		LastModified: time.Now().UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	s.files[row.ID] = row
	s.fileByPath[pathKey{ownerID, canonical}] = row.ID
	s.childFiles[parent.ID][name] = row.ID
	return cloneFile(row), nil
}

// DeleteFile removes the file row at path.
func (s *MemoryMetadataStore) DeleteFile(_ context.Context, ownerID, path string) error {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.fileByPath[pathKey{ownerID, canonical}]
	if !ok {
		return metadata.NewError(metadata.ErrNotFound, "file not found", canonical)
	}

	file := s.files[id]
	delete(s.childFiles[file.FolderID], file.Name)
	delete(s.fileByPath, pathKey{ownerID, canonical})
	delete(s.files, id)
	return nil
}

// CalculateUsedStorage sums the sizes of all files owned by ownerID. The
// figure is computed from the live rows on every call, never cached.
func (s *MemoryMetadataStore) CalculateUsedStorage(_ context.Context, ownerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, file := range s.files {
		folder, ok := s.folders[file.FolderID]
		if !ok || folder.OwnerID != ownerID {
			continue
		}
		total += file.Size
	}
	return total, nil
}
