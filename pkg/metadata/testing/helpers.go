package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/pathutil"
)

// testOwner is the owner id used throughout the suite. Stores are keyed by
// owner so the literal value is irrelevant, it just has to be consistent.
const testOwner = "owner-fingerprint"

// AssertErrorCode fails the test unless err is a StoreError with the
// expected code.
func AssertErrorCode(t *testing.T, expected metadata.ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, metadata.IsCode(err, expected),
		"expected error code %d, got error: %v", expected, err)
}

// createRoot ensures the test owner's root folder exists.
func createRoot(t *testing.T, store metadata.Store) *metadata.Folder {
	t.Helper()
	root, err := store.EnsureRootFolder(context.Background(), testOwner)
	require.NoError(t, err)
	return root
}

// createFolder creates a folder at path, with the root guaranteed to exist.
func createFolder(t *testing.T, store metadata.Store, path string) *metadata.Folder {
	t.Helper()
	createRoot(t, store)
	folder, err := store.CreateFolderPath(context.Background(), testOwner, path)
	require.NoError(t, err)
	return folder
}

// putFile commits a file row at path with the given size on storage node
// "node-1". The parent folder is created as needed.
func putFile(t *testing.T, store metadata.Store, path string, size int64) *metadata.File {
	t.Helper()
	parent, _, err := pathutil.Split(path)
	require.NoError(t, err)
	createFolder(t, store, parent)

	file, err := store.UpsertFile(context.Background(), testOwner, &metadata.File{
		StorageID: "node-1",
		FullPath:  path,
		Size:      size,
	})
	require.NoError(t, err)
	return file
}
