// Package redirect orchestrates content movement between clients and storage
// nodes: quota enforcement, node selection, upload commit ordering and
// cascading content cleanup.
//
// The metadata store is only ever updated after a backend confirms it holds
// the content, so an interrupted upload can never leave a file row pointing
// at bytes that were never stored.
package redirect

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/pathutil"
	"github.com/driftfs/driftfs/pkg/storage"
)

// ErrNotActivated is returned when a registered but not yet activated key
// attempts an upload.
var ErrNotActivated = errors.New("key is not activated for uploads")

// QuotaExceededError indicates an upload would push the owner over its
// storage limit.
type QuotaExceededError struct {
	Limit    int64
	Used     int64
	Required int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage quota exceeded: limit %d, used %d, required %d",
		e.Limit, e.Used, e.Required)
}

// Redirector coordinates the metadata store and the storage backends.
type Redirector struct {
	store metadata.Store
	pool  *storage.Pool
}

// NewRedirector creates a redirector over a metadata store and a backend pool.
func NewRedirector(store metadata.Store, pool *storage.Pool) *Redirector {
	return &Redirector{store: store, pool: pool}
}

// Upload places size bytes of content at path for the given key.
//
// The sequence is: enforce quota, pick a node, stream the content, then
// commit the file row. Overwrites reuse the existing row id; when the new
// content lands on a different node than the old, the stale object is
// deleted afterwards on a best-effort basis.
func (r *Redirector) Upload(ctx context.Context, key *metadata.Key, path string, size int64, content io.Reader) (*metadata.File, error) {
	if !key.Activated {
		return nil, ErrNotActivated
	}

	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}
	parentPath, name, err := pathutil.Split(canonical)
	if err != nil || name == "" {
		return nil, metadata.NewError(metadata.ErrInvalidArgument, "upload path must name a file", canonical)
	}

	// The existing row (if any) affects both quota accounting and row
	// identity.
	var existing *metadata.File
	if found, err := r.store.FindFile(ctx, key.ID, canonical); err == nil {
		existing = found
	} else if !metadata.IsCode(err, metadata.ErrNotFound) {
		return nil, err
	}

	// A folder at the destination is a hard conflict. It is rejected up front
	// so no bytes reach a node for an upload that can never commit.
	if existing == nil {
		if _, err := r.store.FindFolder(ctx, key.ID, canonical); err == nil {
			return nil, metadata.NewError(metadata.ErrAlreadyExists, "a folder occupies this path", canonical)
		} else if !metadata.IsCode(err, metadata.ErrNotFound) {
			return nil, err
		}
	}

	// Quota is enforced on the net growth: overwriting a 200-byte file with
	// 50 bytes frees space rather than consuming it.
	used, err := r.store.CalculateUsedStorage(ctx, key.ID)
	if err != nil {
		return nil, err
	}
	var existingSize int64
	if existing != nil {
		existingSize = existing.Size
	}
	required := size - existingSize
	if used+required > key.StorageLimit {
		return nil, &QuotaExceededError{Limit: key.StorageLimit, Used: used, Required: required}
	}

	storages, err := r.store.ListStorages(ctx)
	if err != nil {
		return nil, err
	}
	node, err := storage.Select(storages, size)
	if err != nil {
		return nil, err
	}
	backend, err := r.pool.Get(node.ID)
	if err != nil {
		return nil, err
	}

	// The parent folder has to exist already; uploads never create folders.
	if _, err := r.store.FindFolder(ctx, key.ID, parentPath); err != nil {
		if metadata.IsCode(err, metadata.ErrNotFound) {
			return nil, metadata.NewError(metadata.ErrParentNotFound, "parent folder does not exist", parentPath)
		}
		return nil, err
	}

	// The row id names the content object, so it is fixed before the bytes
	// move. Nothing is committed until the backend confirms.
	fileID := uuid.NewString()
	if existing != nil {
		fileID = existing.ID
	}

	info, err := backend.Upload(ctx, fileID, size, content)
	if err != nil {
		return nil, fmt.Errorf("upload to storage %s failed: %w", node.ID, err)
	}
	if err := r.store.SetStorageUsedSpace(ctx, node.ID, info.Used); err != nil {
		logger.Warn("failed to refresh used space for storage %s: %v", node.ID, err)
	}

	file, err := r.store.UpsertFile(ctx, key.ID, &metadata.File{
		ID:        fileID,
		StorageID: node.ID,
		FullPath:  canonical,
		Size:      size,
	})
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.StorageID != node.ID {
		r.deleteContent(ctx, existing.StorageID, existing.ID)
	}

	logger.Info("stored %s (%d bytes) on storage %s for key %s", canonical, size, node.ID, key.ID)
	return file, nil
}

// Download opens the content at path. The caller owns the returned reader.
func (r *Redirector) Download(ctx context.Context, key *metadata.Key, path string) (io.ReadCloser, *metadata.File, error) {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return nil, nil, metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	file, err := r.store.FindFile(ctx, key.ID, canonical)
	if err != nil {
		return nil, nil, err
	}

	backend, err := r.pool.Get(file.StorageID)
	if err != nil {
		return nil, nil, err
	}

	content, err := backend.Download(ctx, file.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("download from storage %s failed: %w", file.StorageID, err)
	}
	return content, file, nil
}

// DeleteFile removes the content at path and then its metadata row. The
// backend delete comes first: if the node refuses, the row stays so the
// client can retry.
func (r *Redirector) DeleteFile(ctx context.Context, key *metadata.Key, path string) error {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	file, err := r.store.FindFile(ctx, key.ID, canonical)
	if err != nil {
		return err
	}

	backend, err := r.pool.Get(file.StorageID)
	if err != nil {
		return err
	}
	info, err := backend.Delete(ctx, file.ID)
	if err != nil {
		return fmt.Errorf("delete on storage %s failed: %w", file.StorageID, err)
	}
	if err := r.store.SetStorageUsedSpace(ctx, file.StorageID, info.Used); err != nil {
		logger.Warn("failed to refresh used space for storage %s: %v", file.StorageID, err)
	}

	return r.store.DeleteFile(ctx, key.ID, file.FullPath)
}

// DeleteFolder removes the folder at path: content of every file in the
// subtree is deleted from its node best-effort, then the metadata cascade
// removes the rows.
func (r *Redirector) DeleteFolder(ctx context.Context, key *metadata.Key, path string) error {
	canonical, err := pathutil.Normalize(path)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, err.Error(), path)
	}

	folder, err := r.store.FindFolder(ctx, key.ID, canonical)
	if err != nil {
		return err
	}
	if folder.IsRoot() {
		return metadata.NewError(metadata.ErrInvalidArgument, "cannot delete the root folder", canonical)
	}

	if err := r.deleteSubtreeContent(ctx, key.ID, canonical); err != nil {
		return err
	}
	return r.store.DeleteFolder(ctx, key.ID, canonical)
}

// deleteSubtreeContent walks the folder depth-first deleting backend content
// for every file. Individual node failures are logged, not propagated: the
// metadata cascade must not be blocked by one unreachable node, and orphaned
// objects are reclaimable later by comparing node contents against the rows.
func (r *Redirector) deleteSubtreeContent(ctx context.Context, ownerID, path string) error {
	subfolders, err := r.store.ListSubfolders(ctx, ownerID, path)
	if err != nil {
		return err
	}
	for _, sub := range subfolders {
		if err := r.deleteSubtreeContent(ctx, ownerID, sub.FullPath); err != nil {
			return err
		}
	}

	files, err := r.store.ListFiles(ctx, ownerID, path)
	if err != nil {
		return err
	}
	for _, file := range files {
		r.deleteContent(ctx, file.StorageID, file.ID)
	}
	return nil
}

// deleteContent removes one object from one node, logging failures instead
// of propagating them.
func (r *Redirector) deleteContent(ctx context.Context, storageID, fileID string) {
	backend, err := r.pool.Get(storageID)
	if err != nil {
		logger.Warn("cannot clean up object %s: %v", fileID, err)
		return
	}
	info, err := backend.Delete(ctx, fileID)
	if err != nil {
		logger.Warn("failed to delete object %s from storage %s: %v", fileID, storageID, err)
		return
	}
	if err := r.store.SetStorageUsedSpace(ctx, storageID, info.Used); err != nil {
		logger.Warn("failed to refresh used space for storage %s: %v", storageID, err)
	}
}
