package redirect

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/metadata/memory"
	"github.com/driftfs/driftfs/pkg/storage"
)

// fakeBackend is an in-memory storage.Backend recording every call.
type fakeBackend struct {
	mu       sync.Mutex
	objects  map[string][]byte
	capacity int64

	failUpload bool
	failDelete bool
	deleted    []string
}

func newFakeBackend(capacity int64) *fakeBackend {
	return &fakeBackend{objects: make(map[string][]byte), capacity: capacity}
}

func (b *fakeBackend) Upload(_ context.Context, id string, _ int64, content io.Reader) (storage.SpaceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failUpload {
		return storage.SpaceInfo{}, errors.New("node rejected the upload")
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return storage.SpaceInfo{}, err
	}
	b.objects[id] = data
	return b.usageLocked(), nil
}

func (b *fakeBackend) Download(_ context.Context, id string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[id]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBackend) Delete(_ context.Context, id string) (storage.SpaceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDelete {
		return storage.SpaceInfo{}, errors.New("node refused the delete")
	}
	delete(b.objects, id)
	b.deleted = append(b.deleted, id)
	return b.usageLocked(), nil
}

func (b *fakeBackend) usageLocked() storage.SpaceInfo {
	var used int64
	for _, data := range b.objects {
		used += int64(len(data))
	}
	return storage.SpaceInfo{Capacity: b.capacity, Used: used}
}

func (b *fakeBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func (b *fakeBackend) has(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[id]
	return ok
}

type fixture struct {
	store      *memory.MemoryMetadataStore
	redirector *Redirector
	key        *metadata.Key
	backends   map[string]*fakeBackend
}

// newFixture builds a redirector over a memory store with one activated key
// and the given storage nodes.
func newFixture(t *testing.T, limit int64, nodes ...*metadata.Storage) *fixture {
	t.Helper()

	store := memory.NewMemoryMetadataStore()
	pool := storage.NewPool()
	backends := make(map[string]*fakeBackend)

	for _, node := range nodes {
		_, err := store.UpsertStorage(context.Background(), node)
		require.NoError(t, err)
		backend := newFakeBackend(node.Capacity)
		backends[node.ID] = backend
		pool.Add(node.ID, backend)
	}

	key := &metadata.Key{ID: "owner", StorageLimit: limit, Activated: true}
	_, err := store.AddKey(context.Background(), key)
	require.NoError(t, err)
	_, err = store.EnsureRootFolder(context.Background(), key.ID)
	require.NoError(t, err)

	return &fixture{
		store:      store,
		redirector: NewRedirector(store, pool),
		key:        key,
		backends:   backends,
	}
}

func storageNode(id string, capacity, used int64, priority int) *metadata.Storage {
	return &metadata.Storage{ID: id, Capacity: capacity, UsedSpace: used, Priority: priority}
}

func (f *fixture) mkdir(t *testing.T, path string) {
	t.Helper()
	_, err := f.store.CreateFolderPath(context.Background(), f.key.ID, path)
	require.NoError(t, err)
}

func (f *fixture) upload(t *testing.T, path, content string) *metadata.File {
	t.Helper()
	file, err := f.redirector.Upload(context.Background(), f.key, path, int64(len(content)), strings.NewReader(content))
	require.NoError(t, err)
	return file
}

func TestUploadStoresContentAndCommitsRow(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))
	f.mkdir(t, "/docs")

	file := f.upload(t, "/docs/report.txt", "hello world")
	assert.Equal(t, "s1", file.StorageID)
	assert.Equal(t, int64(11), file.Size)
	assert.True(t, f.backends["s1"].has(file.ID), "content must live under the row id")
}

func TestUploadRequiresParentFolder(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))

	_, err := f.redirector.Upload(context.Background(), f.key, "/missing/report.txt", 5, strings.NewReader("hello"))
	assert.True(t, metadata.IsCode(err, metadata.ErrParentNotFound), "got: %v", err)
}

func TestUploadRejectsFolderAtPath(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))
	f.mkdir(t, "/docs")

	_, err := f.redirector.Upload(context.Background(), f.key, "/docs", 5, strings.NewReader("hello"))
	assert.True(t, metadata.IsCode(err, metadata.ErrAlreadyExists), "got: %v", err)
	assert.Zero(t, f.backends["s1"].count(), "a rejected upload must leave nothing on the node")
}

func TestUploadBackendFailureLeavesNoRow(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))
	f.backends["s1"].failUpload = true

	_, err := f.redirector.Upload(context.Background(), f.key, "/report.txt", 5, strings.NewReader("hello"))
	require.Error(t, err)

	_, err = f.store.FindFile(context.Background(), f.key.ID, "/report.txt")
	assert.True(t, metadata.IsCode(err, metadata.ErrNotFound),
		"no metadata row may exist for content that was never stored")
}

func TestUploadRejectsUnactivatedKey(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))
	f.key.Activated = false

	_, err := f.redirector.Upload(context.Background(), f.key, "/report.txt", 5, strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrNotActivated)
}

func TestUploadQuota(t *testing.T) {
	t.Run("RejectsOverLimit", func(t *testing.T) {
		f := newFixture(t, 10, storageNode("s1", 1000, 0, 1))

		_, err := f.redirector.Upload(context.Background(), f.key, "/big.bin", 11, strings.NewReader(strings.Repeat("x", 11)))
		var quotaErr *QuotaExceededError
		require.ErrorAs(t, err, &quotaErr)
		assert.Equal(t, int64(10), quotaErr.Limit)
	})

	t.Run("OverwriteCountsNetGrowth", func(t *testing.T) {
		// Limit 200, existing file of 200: shrinking it to 50 must pass.
		f := newFixture(t, 200, storageNode("s1", 1000, 0, 1))
		f.upload(t, "/data.bin", strings.Repeat("x", 200))

		file, err := f.redirector.Upload(context.Background(), f.key, "/data.bin", 50, strings.NewReader(strings.Repeat("y", 50)))
		require.NoError(t, err)
		assert.Equal(t, int64(50), file.Size)

		used, err := f.store.CalculateUsedStorage(context.Background(), f.key.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), used)
	})
}

func TestUploadOverwriteKeepsRowID(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))

	first := f.upload(t, "/report.txt", "version one")
	second := f.upload(t, "/report.txt", "v2")
	assert.Equal(t, first.ID, second.ID)
}

func TestOverwriteOnDifferentNodeCleansUpOldContent(t *testing.T) {
	// s1 is small: the first upload fills it, so the overwrite must land on
	// s2 and the stale object on s1 must be removed.
	f := newFixture(t, 10000,
		storageNode("s1", 100, 0, 1),
		storageNode("s2", 10000, 0, 2))

	first := f.upload(t, "/data.bin", strings.Repeat("x", 90))
	require.Equal(t, "s1", first.StorageID)

	second, err := f.redirector.Upload(context.Background(), f.key, "/data.bin", 500, strings.NewReader(strings.Repeat("y", 500)))
	require.NoError(t, err)
	assert.Equal(t, "s2", second.StorageID)
	assert.Equal(t, first.ID, second.ID)

	assert.False(t, f.backends["s1"].has(first.ID), "stale object must be deleted from the old node")
	assert.True(t, f.backends["s2"].has(second.ID))
}

func TestUploadNoAvailableStorage(t *testing.T) {
	f := newFixture(t, 10000, storageNode("s1", 100, 95, 1))

	_, err := f.redirector.Upload(context.Background(), f.key, "/big.bin", 50, strings.NewReader(strings.Repeat("x", 50)))
	assert.ErrorIs(t, err, storage.ErrNoAvailableStorage)
}

func TestDownloadRoundTrip(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))
	f.upload(t, "/report.txt", "hello world")

	content, file, err := f.redirector.Download(context.Background(), f.key, "/report.txt")
	require.NoError(t, err)
	defer func() { _ = content.Close() }()

	data, err := io.ReadAll(content)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, "/report.txt", file.FullPath)
}

func TestDownloadMissingFile(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))

	_, _, err := f.redirector.Download(context.Background(), f.key, "/missing.txt")
	assert.True(t, metadata.IsCode(err, metadata.ErrNotFound))
}

func TestDeleteFileRemovesContentThenRow(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))
	file := f.upload(t, "/report.txt", "hello")

	require.NoError(t, f.redirector.DeleteFile(context.Background(), f.key, "/report.txt"))
	assert.False(t, f.backends["s1"].has(file.ID))

	_, err := f.store.FindFile(context.Background(), f.key.ID, "/report.txt")
	assert.True(t, metadata.IsCode(err, metadata.ErrNotFound))
}

func TestDeleteFileKeepsRowWhenBackendRefuses(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))
	f.upload(t, "/report.txt", "hello")
	f.backends["s1"].failDelete = true

	err := f.redirector.DeleteFile(context.Background(), f.key, "/report.txt")
	require.Error(t, err)

	// The row survives so the client can retry once the node recovers.
	_, err = f.store.FindFile(context.Background(), f.key.ID, "/report.txt")
	require.NoError(t, err)
}

func TestDeleteFolderCascadesContent(t *testing.T) {
	f := newFixture(t, 10000, storageNode("s1", 10000, 0, 1))
	f.mkdir(t, "/docs/deep")
	a := f.upload(t, "/docs/a.txt", "aaa")
	b := f.upload(t, "/docs/deep/b.txt", "bbb")
	keep := f.upload(t, "/keep.txt", "keep me")

	require.NoError(t, f.redirector.DeleteFolder(context.Background(), f.key, "/docs"))

	assert.False(t, f.backends["s1"].has(a.ID))
	assert.False(t, f.backends["s1"].has(b.ID))
	assert.True(t, f.backends["s1"].has(keep.ID), "files outside the subtree are untouched")

	_, err := f.store.FindFolder(context.Background(), f.key.ID, "/docs")
	assert.True(t, metadata.IsCode(err, metadata.ErrNotFound))
}

func TestDeleteFolderRejectsRoot(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))

	err := f.redirector.DeleteFolder(context.Background(), f.key, "/")
	assert.True(t, metadata.IsCode(err, metadata.ErrInvalidArgument))
}

func TestDeleteFolderSurvivesNodeFailure(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))
	f.mkdir(t, "/docs")
	f.upload(t, "/docs/a.txt", "aaa")
	f.backends["s1"].failDelete = true

	// Content cleanup is best-effort; the metadata cascade still happens.
	require.NoError(t, f.redirector.DeleteFolder(context.Background(), f.key, "/docs"))

	_, err := f.store.FindFolder(context.Background(), f.key.ID, "/docs")
	assert.True(t, metadata.IsCode(err, metadata.ErrNotFound))
}

func TestUploadRefreshesStorageUsedSpace(t *testing.T) {
	f := newFixture(t, 1000, storageNode("s1", 1000, 0, 1))
	f.upload(t, "/report.txt", "hello")

	node, err := f.store.GetStorage(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), node.UsedSpace, "the node's usage report is written back to the store")
}
