// Package storage defines the content backend contract and the node
// selection policy used when placing new uploads.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// ErrNoAvailableStorage is returned when no storage node can accept an
// upload of the requested size.
var ErrNoAvailableStorage = errors.New("no storage node can accept the upload")

// SpaceInfo is a storage node's usage report, returned by mutating backend
// operations so the caller can refresh the node's cached figures.
type SpaceInfo struct {
	Capacity int64 `json:"capacity"`
	Used     int64 `json:"used"`
}

// Backend moves content bytes to and from a single storage node. The id is
// the file row's id, which doubles as the content object name on the node.
type Backend interface {
	// Upload streams size bytes of content to the node under id. Uploading
	// an existing id overwrites the object.
	Upload(ctx context.Context, id string, size int64, content io.Reader) (SpaceInfo, error)

	// Download opens the content stored under id. The caller owns the
	// returned reader and must close it.
	Download(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete removes the content stored under id.
	Delete(ctx context.Context, id string) (SpaceInfo, error)
}

// Select picks the storage node for an upload of the given size.
//
// Candidates must have a positive priority and enough free space. Among the
// candidates the lowest priority value wins; free space breaks ties with the
// fullest node first, which concentrates data and keeps larger contiguous
// reserves on the emptier nodes.
func Select(storages []*metadata.Storage, size int64) (*metadata.Storage, error) {
	candidates := make([]*metadata.Storage, 0, len(storages))
	for _, storage := range storages {
		if storage.Priority > 0 && storage.Free() >= size {
			candidates = append(candidates, storage)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoAvailableStorage
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].Free() < candidates[j].Free()
	})
	return candidates[0], nil
}

// Pool resolves storage node ids to their configured backends.
type Pool struct {
	backends map[string]Backend
}

// NewPool creates an empty backend pool.
func NewPool() *Pool {
	return &Pool{backends: make(map[string]Backend)}
}

// Add registers a backend under a storage node id, replacing any previous
// registration.
func (p *Pool) Add(storageID string, backend Backend) {
	p.backends[storageID] = backend
}

// Get returns the backend for a storage node id.
func (p *Pool) Get(storageID string) (Backend, error) {
	backend, ok := p.backends[storageID]
	if !ok {
		return nil, fmt.Errorf("no backend configured for storage %q", storageID)
	}
	return backend, nil
}

// IDs returns the registered storage node ids.
func (p *Pool) IDs() []string {
	ids := make([]string, 0, len(p.backends))
	for id := range p.backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
