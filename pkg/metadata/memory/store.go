// Package memory implements metadata.Store using in-memory data structures.
package memory

import (
	"sync"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// MemoryMetadataStore implements metadata.Store backed entirely by in-memory
// maps. It is suitable for:
//   - Testing and development environments
//   - Ephemeral deployments where persistence is not required
//   - Acting as the reference implementation for the shared contract suite
//
// Thread Safety:
// All operations are protected by a single read-write mutex (mu), making the
// store safe for concurrent access from multiple goroutines. This
// coarse-grained locking is simple and correct; every mutation is atomic
// because it happens entirely under the write lock.
//
// Storage Model:
//
// The store maintains row maps keyed by id together with secondary indexes
// that make path lookup and tree traversal O(1):
//
//  1. Rows (keys, folders, files, storages):
//     Primary storage, keyed by record id.
//
//  2. Path Indexes (folderByPath, fileByPath):
//     Map (owner id, canonical full path) to the record id. These are the
//     lookup side of the denormalized full_path design: exact string match,
//     no tree walk.
//
//  3. Child Indexes (childFolders, childFiles):
//     Map a folder id to its direct children by name. These drive listing,
//     sibling-uniqueness checks and subtree walks.
//
//  4. Roots (roots):
//     Maps an owner id to its root folder id. There is at most one root per
//     owner.
//
// Consistency Guarantees:
//
// Every operation keeps the indexes bidirectionally consistent with the rows:
//   - folderByPath and fileByPath always agree with the FullPath stored on
//     the row
//   - a folder's FullPath always equals Join(parent.FullPath, folder.Name)
//   - child index entries always reference live rows
//
// Rename and move recompute the cached full paths of the whole affected
// subtree before returning, so readers never observe a stale path.
type MemoryMetadataStore struct {
	// mu protects all fields in this struct for concurrent access.
	// Operations acquire read locks for queries and write locks for mutations.
	mu sync.RWMutex

	// keys maps key fingerprints to key records.
	keys map[string]*metadata.Key

	// folders maps folder ids to folder rows.
	folders map[string]*metadata.Folder

	// files maps file ids to file rows.
	files map[string]*metadata.File

	// storages maps storage node ids to node descriptors.
	storages map[string]*metadata.Storage

	// roots maps owner ids to their root folder id.
	roots map[string]string

	// folderByPath maps (owner id, canonical path) to a folder id.
	folderByPath map[pathKey]string

	// fileByPath maps (owner id, canonical path) to a file id.
	fileByPath map[pathKey]string

	// childFolders maps a folder id to its direct subfolders by name.
	childFolders map[string]map[string]string

	// childFiles maps a folder id to its direct files by name.
	childFiles map[string]map[string]string
}

// pathKey identifies a row by owner and canonical path. Using a struct key
// avoids ambiguity that a joined string key would have.
type pathKey struct {
	ownerID string
	path    string
}

// NewMemoryMetadataStore creates an empty in-memory metadata store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		keys:         make(map[string]*metadata.Key),
		folders:      make(map[string]*metadata.Folder),
		files:        make(map[string]*metadata.File),
		storages:     make(map[string]*metadata.Storage),
		roots:        make(map[string]string),
		folderByPath: make(map[pathKey]string),
		fileByPath:   make(map[pathKey]string),
		childFolders: make(map[string]map[string]string),
		childFiles:   make(map[string]map[string]string),
	}
}

// Close implements metadata.Store. It is a no-op for the in-memory store.
func (s *MemoryMetadataStore) Close() error {
	return nil
}

// Defensive copies: rows handed to or received from callers are cloned so
// that external mutation can never corrupt the indexes.

func cloneKey(k *metadata.Key) *metadata.Key {
	c := *k
	return &c
}

func cloneFolder(f *metadata.Folder) *metadata.Folder {
	c := *f
	return &c
}

func cloneFile(f *metadata.File) *metadata.File {
	c := *f
	return &c
}

func cloneStorage(s *metadata.Storage) *metadata.Storage {
	c := *s
	return &c
}
