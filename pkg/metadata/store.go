package metadata

import "context"

// Store provides metadata management for the virtual filesystem: key records,
// folder trees, file rows and storage node descriptors.
//
// The store manages structure and bookkeeping only. File content lives on
// backend storage nodes and is coordinated by the redirect layer; the store
// never talks to a backend.
//
// Path Semantics:
// All path arguments must be canonical (pathutil.Normalize output). Lookups
// are exact-match against the denormalized full_path column; mutators are
// responsible for keeping the full_path invariant
// (full_path == join(parent.full_path, name)) true for every descendant of a
// renamed or moved folder.
//
// Error Handling:
// Business logic failures are reported as *StoreError with a specific
// ErrorCode. Absence is an error (ErrNotFound) rather than a nil result so
// call sites cannot forget to handle it.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines,
// and each operation must be atomic: a failed mutation leaves no partial
// state behind.
type Store interface {
	// ========================================================================
	// Key records
	// ========================================================================

	// GetKey returns the key record with the given fingerprint id.
	// Fails with ErrNotFound if no such record exists.
	GetKey(ctx context.Context, keyID string) (*Key, error)

	// AddKey stores a new key record. Fails with ErrAlreadyExists if a record
	// with the same id is already present.
	AddKey(ctx context.Context, key *Key) (*Key, error)

	// ========================================================================
	// Folders
	// ========================================================================

	// EnsureRootFolder returns the owner's root folder, creating it if it
	// does not exist yet. Safe to call any number of times; there is always
	// at most one root per owner.
	EnsureRootFolder(ctx context.Context, ownerID string) (*Folder, error)

	// FindFolder returns the folder at the exact canonical path.
	// Fails with ErrNotFound if absent.
	FindFolder(ctx context.Context, ownerID, path string) (*Folder, error)

	// CreateFolder creates a single folder at path. The parent must already
	// exist (ErrParentNotFound otherwise). Fails with ErrAlreadyExists if a
	// folder or file occupies the path.
	CreateFolder(ctx context.Context, ownerID, path string) (*Folder, error)

	// CreateFolderPath walks path from the root, creating every missing
	// intermediate folder and reusing existing ones by name. Calling it with
	// a fully existing path is a no-op that returns the existing leaf.
	CreateFolderPath(ctx context.Context, ownerID, path string) (*Folder, error)

	// RenameFolder changes the folder's name and recomputes the cached
	// full_path of the folder and all of its descendants. The root cannot be
	// renamed (ErrInvalidArgument). Fails with ErrAlreadyExists if the parent
	// already has a child named newName.
	RenameFolder(ctx context.Context, ownerID, path, newName string) (*Folder, error)

	// MoveFolder reparents the folder at path under the folder at
	// destination and recomputes full_path for the whole subtree. Fails with
	// ErrInvalidDestination if destination equals path or lies inside it,
	// with ErrAlreadyExists if destination already has a child with the same
	// name, and with ErrInvalidArgument when attempting to move the root.
	MoveFolder(ctx context.Context, ownerID, path, destination string) (*Folder, error)

	// DeleteFolder removes the folder at path together with every descendant
	// folder and file row. This is a metadata-only cascade; callers must
	// have dealt with backend content beforehand. The root cannot be
	// deleted (ErrInvalidArgument).
	DeleteFolder(ctx context.Context, ownerID, path string) error

	// ListSubfolders returns the direct child folders of the folder at path.
	ListSubfolders(ctx context.Context, ownerID, path string) ([]*Folder, error)

	// ListFiles returns the files directly owned by the folder at path.
	ListFiles(ctx context.Context, ownerID, path string) ([]*File, error)

	// ========================================================================
	// Files
	// ========================================================================

	// FindFile returns the file at the exact canonical path.
	// Fails with ErrNotFound if absent.
	FindFile(ctx context.Context, ownerID, path string) (*File, error)

	// UpsertFile commits a file row after a confirmed backend upload.
	//
	// If a file already exists at file.FullPath its storage assignment and
	// size are updated and its id is preserved; otherwise a new row is
	// created with file.ID (generated when empty). LastModified is refreshed
	// in both cases. Fails with ErrParentNotFound if the parent folder is
	// missing and with ErrAlreadyExists if a folder occupies the path.
	UpsertFile(ctx context.Context, ownerID string, file *File) (*File, error)

	// DeleteFile removes the file row at path. Metadata only; backend
	// content is coordinated by the caller.
	DeleteFile(ctx context.Context, ownerID, path string) error

	// CalculateUsedStorage returns the exact sum of sizes of all files
	// transitively owned by ownerID. Always computed, never cached.
	CalculateUsedStorage(ctx context.Context, ownerID string) (int64, error)

	// ========================================================================
	// Storage nodes
	// ========================================================================

	// UpsertStorage creates or updates a storage node descriptor. On update
	// the cached used_space of the existing row is preserved; url, token,
	// capacity and priority are overwritten.
	UpsertStorage(ctx context.Context, storage *Storage) (*Storage, error)

	// GetStorage returns the storage node with the given id.
	// Fails with ErrNotFound if absent.
	GetStorage(ctx context.Context, storageID string) (*Storage, error)

	// ListStorages returns all storage node descriptors.
	ListStorages(ctx context.Context) ([]*Storage, error)

	// SetStorageUsedSpace refreshes the cached usage figure for a node,
	// typically from a backend response.
	SetStorageUsedSpace(ctx context.Context, storageID string, used int64) error

	// Close releases any resources held by the store.
	Close() error
}
