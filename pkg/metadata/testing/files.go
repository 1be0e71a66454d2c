package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// RunFileTests executes all file row tests.
func (suite *StoreTestSuite) RunFileTests(t *testing.T) {
	t.Run("Upsert", suite.testFileUpsert)
	t.Run("Find", suite.testFileFind)
	t.Run("Delete", suite.testFileDelete)
	t.Run("UsedStorage", suite.testFileUsedStorage)
}

func (suite *StoreTestSuite) testFileUpsert(t *testing.T) {
	t.Run("CreatesRow", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/docs")

		file, err := store.UpsertFile(context.Background(), testOwner, &metadata.File{
			StorageID: "node-1",
			FullPath:  "/docs/report.txt",
			Size:      42,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, file.ID, "a file id is generated when not provided")
		assert.Equal(t, "report.txt", file.Name)
		assert.Equal(t, "/docs/report.txt", file.FullPath)
		assert.Equal(t, int64(42), file.Size)
		assert.False(t, file.LastModified.IsZero())
	})

	t.Run("KeepsProvidedID", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		file, err := store.UpsertFile(context.Background(), testOwner, &metadata.File{
			ID:        "content-object-7",
			StorageID: "node-1",
			FullPath:  "/report.txt",
			Size:      1,
		})
		require.NoError(t, err)
		assert.Equal(t, "content-object-7", file.ID)
	})

	t.Run("UpdatePreservesID", func(t *testing.T) {
		store := suite.NewStore(t)
		original := putFile(t, store, "/report.txt", 10)

		updated, err := store.UpsertFile(context.Background(), testOwner, &metadata.File{
			StorageID: "node-2",
			FullPath:  "/report.txt",
			Size:      99,
		})
		require.NoError(t, err)
		assert.Equal(t, original.ID, updated.ID, "overwriting keeps the row identity")
		assert.Equal(t, "node-2", updated.StorageID)
		assert.Equal(t, int64(99), updated.Size)
	})

	t.Run("ErrorParentMissing", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		_, err := store.UpsertFile(context.Background(), testOwner, &metadata.File{
			StorageID: "node-1",
			FullPath:  "/missing/report.txt",
			Size:      1,
		})
		AssertErrorCode(t, metadata.ErrParentNotFound, err)
	})

	t.Run("ErrorFolderOccupiesPath", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/docs")

		_, err := store.UpsertFile(context.Background(), testOwner, &metadata.File{
			StorageID: "node-1",
			FullPath:  "/docs",
			Size:      1,
		})
		AssertErrorCode(t, metadata.ErrAlreadyExists, err)
	})
}

func (suite *StoreTestSuite) testFileFind(t *testing.T) {
	t.Run("ExactPath", func(t *testing.T) {
		store := suite.NewStore(t)
		created := putFile(t, store, "/docs/report.txt", 7)

		found, err := store.FindFile(context.Background(), testOwner, "/docs/report.txt")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("ErrorNotFound", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		_, err := store.FindFile(context.Background(), testOwner, "/missing.txt")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})

	t.Run("OwnersAreIsolated", func(t *testing.T) {
		store := suite.NewStore(t)
		putFile(t, store, "/report.txt", 7)

		_, err := store.FindFile(context.Background(), "another-owner", "/report.txt")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})
}

func (suite *StoreTestSuite) testFileDelete(t *testing.T) {
	t.Run("RemovesRow", func(t *testing.T) {
		store := suite.NewStore(t)
		putFile(t, store, "/report.txt", 7)

		err := store.DeleteFile(context.Background(), testOwner, "/report.txt")
		require.NoError(t, err)

		_, err = store.FindFile(context.Background(), testOwner, "/report.txt")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})

	t.Run("ErrorNotFound", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		err := store.DeleteFile(context.Background(), testOwner, "/missing.txt")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})
}

func (suite *StoreTestSuite) testFileUsedStorage(t *testing.T) {
	t.Run("SumsAllFiles", func(t *testing.T) {
		store := suite.NewStore(t)
		putFile(t, store, "/a.txt", 10)
		putFile(t, store, "/docs/b.txt", 20)
		putFile(t, store, "/docs/deep/c.txt", 30)

		used, err := store.CalculateUsedStorage(context.Background(), testOwner)
		require.NoError(t, err)
		assert.Equal(t, int64(60), used)
	})

	t.Run("OverwriteCountsOnce", func(t *testing.T) {
		store := suite.NewStore(t)
		putFile(t, store, "/a.txt", 10)
		putFile(t, store, "/a.txt", 25)

		used, err := store.CalculateUsedStorage(context.Background(), testOwner)
		require.NoError(t, err)
		assert.Equal(t, int64(25), used)
	})

	t.Run("IgnoresOtherOwners", func(t *testing.T) {
		store := suite.NewStore(t)
		putFile(t, store, "/a.txt", 10)

		_, err := store.EnsureRootFolder(context.Background(), "another-owner")
		require.NoError(t, err)
		_, err = store.UpsertFile(context.Background(), "another-owner", &metadata.File{
			StorageID: "node-1",
			FullPath:  "/b.txt",
			Size:      100,
		})
		require.NoError(t, err)

		used, err := store.CalculateUsedStorage(context.Background(), testOwner)
		require.NoError(t, err)
		assert.Equal(t, int64(10), used)
	})

	t.Run("ZeroForUnknownOwner", func(t *testing.T) {
		store := suite.NewStore(t)

		used, err := store.CalculateUsedStorage(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Equal(t, int64(0), used)
	})
}
