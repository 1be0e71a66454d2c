package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// RunFolderTests executes all folder tree tests.
func (suite *StoreTestSuite) RunFolderTests(t *testing.T) {
	t.Run("Root", suite.testFolderRoot)
	t.Run("Create", suite.testFolderCreate)
	t.Run("CreatePath", suite.testFolderCreatePath)
	t.Run("Rename", suite.testFolderRename)
	t.Run("Move", suite.testFolderMove)
	t.Run("Delete", suite.testFolderDelete)
	t.Run("List", suite.testFolderList)
}

// ============================================================================
// Root
// ============================================================================

func (suite *StoreTestSuite) testFolderRoot(t *testing.T) {
	t.Run("EnsureIsIdempotent", func(t *testing.T) {
		store := suite.NewStore(t)

		first, err := store.EnsureRootFolder(context.Background(), testOwner)
		require.NoError(t, err)
		assert.Equal(t, "/", first.FullPath)
		assert.True(t, first.IsRoot())

		second, err := store.EnsureRootFolder(context.Background(), testOwner)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID, "ensure must not create a second root")
	})

	t.Run("RootsAreSeparatedByOwner", func(t *testing.T) {
		store := suite.NewStore(t)

		a, err := store.EnsureRootFolder(context.Background(), "owner-a")
		require.NoError(t, err)
		b, err := store.EnsureRootFolder(context.Background(), "owner-b")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

// ============================================================================
// Create
// ============================================================================

func (suite *StoreTestSuite) testFolderCreate(t *testing.T) {
	t.Run("SetsFullPath", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		folder, err := store.CreateFolder(context.Background(), testOwner, "/docs")
		require.NoError(t, err)
		assert.Equal(t, "/docs", folder.FullPath)
		assert.Equal(t, "docs", folder.Name)
		assert.False(t, folder.IsRoot())
	})

	t.Run("NormalizesPath", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		folder, err := store.CreateFolder(context.Background(), testOwner, "/docs/")
		require.NoError(t, err)
		assert.Equal(t, "/docs", folder.FullPath)
	})

	t.Run("ErrorParentMissing", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		_, err := store.CreateFolder(context.Background(), testOwner, "/missing/docs")
		AssertErrorCode(t, metadata.ErrParentNotFound, err)
	})

	t.Run("ErrorDuplicateName", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/docs")

		_, err := store.CreateFolder(context.Background(), testOwner, "/docs")
		AssertErrorCode(t, metadata.ErrAlreadyExists, err)
	})

	t.Run("ErrorNameTakenByFile", func(t *testing.T) {
		store := suite.NewStore(t)
		putFile(t, store, "/report", 1)

		_, err := store.CreateFolder(context.Background(), testOwner, "/report")
		AssertErrorCode(t, metadata.ErrAlreadyExists, err)
	})
}

func (suite *StoreTestSuite) testFolderCreatePath(t *testing.T) {
	t.Run("CreatesIntermediates", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		leaf, err := store.CreateFolderPath(context.Background(), testOwner, "/a/b/c")
		require.NoError(t, err)
		assert.Equal(t, "/a/b/c", leaf.FullPath)

		intermediate, err := store.FindFolder(context.Background(), testOwner, "/a/b")
		require.NoError(t, err)
		assert.Equal(t, "/a/b", intermediate.FullPath)
	})

	t.Run("Idempotent", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		first, err := store.CreateFolderPath(context.Background(), testOwner, "/a/b/c")
		require.NoError(t, err)
		second, err := store.CreateFolderPath(context.Background(), testOwner, "/a/b/c")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID, "existing folders must be reused, not duplicated")
	})

	t.Run("ReusesExistingPrefix", func(t *testing.T) {
		store := suite.NewStore(t)
		existing := createFolder(t, store, "/a/b")

		_, err := store.CreateFolderPath(context.Background(), testOwner, "/a/b/c")
		require.NoError(t, err)

		reused, err := store.FindFolder(context.Background(), testOwner, "/a/b")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, reused.ID)
	})
}

// ============================================================================
// Rename
// ============================================================================

func (suite *StoreTestSuite) testFolderRename(t *testing.T) {
	t.Run("UpdatesSubtreePaths", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/docs/2024")
		putFile(t, store, "/docs/2024/report.txt", 10)

		renamed, err := store.RenameFolder(context.Background(), testOwner, "/docs", "archive")
		require.NoError(t, err)
		assert.Equal(t, "/archive", renamed.FullPath)

		// Descendants are reachable under the new path only.
		sub, err := store.FindFolder(context.Background(), testOwner, "/archive/2024")
		require.NoError(t, err)
		assert.Equal(t, "/archive/2024", sub.FullPath)

		file, err := store.FindFile(context.Background(), testOwner, "/archive/2024/report.txt")
		require.NoError(t, err)
		assert.Equal(t, "/archive/2024/report.txt", file.FullPath)

		_, err = store.FindFolder(context.Background(), testOwner, "/docs")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})

	t.Run("ErrorRenameRoot", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		_, err := store.RenameFolder(context.Background(), testOwner, "/", "anything")
		AssertErrorCode(t, metadata.ErrInvalidArgument, err)
	})

	t.Run("ErrorSiblingNameTaken", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/a")
		createFolder(t, store, "/b")

		_, err := store.RenameFolder(context.Background(), testOwner, "/a", "b")
		AssertErrorCode(t, metadata.ErrAlreadyExists, err)
	})

	t.Run("ErrorNotFound", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		_, err := store.RenameFolder(context.Background(), testOwner, "/missing", "new")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})
}

// ============================================================================
// Move
// ============================================================================

func (suite *StoreTestSuite) testFolderMove(t *testing.T) {
	t.Run("ReparentsSubtree", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/src/pkg")
		putFile(t, store, "/src/pkg/main.txt", 5)
		createFolder(t, store, "/dst")

		moved, err := store.MoveFolder(context.Background(), testOwner, "/src/pkg", "/dst")
		require.NoError(t, err)
		assert.Equal(t, "/dst/pkg", moved.FullPath)

		file, err := store.FindFile(context.Background(), testOwner, "/dst/pkg/main.txt")
		require.NoError(t, err)
		assert.Equal(t, "/dst/pkg/main.txt", file.FullPath)

		_, err = store.FindFolder(context.Background(), testOwner, "/src/pkg")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})

	t.Run("ErrorMoveIntoItself", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/a/b")

		_, err := store.MoveFolder(context.Background(), testOwner, "/a", "/a")
		AssertErrorCode(t, metadata.ErrInvalidDestination, err)

		_, err = store.MoveFolder(context.Background(), testOwner, "/a", "/a/b")
		AssertErrorCode(t, metadata.ErrInvalidDestination, err)
	})

	t.Run("ErrorMoveRoot", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/a")

		_, err := store.MoveFolder(context.Background(), testOwner, "/", "/a")
		AssertErrorCode(t, metadata.ErrInvalidArgument, err)
	})

	t.Run("ErrorDestinationHasSameName", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/a/x")
		createFolder(t, store, "/b/x")

		_, err := store.MoveFolder(context.Background(), testOwner, "/a/x", "/b")
		AssertErrorCode(t, metadata.ErrAlreadyExists, err)
	})

	t.Run("ErrorDestinationMissing", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/a")

		_, err := store.MoveFolder(context.Background(), testOwner, "/a", "/missing")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})
}

// ============================================================================
// Delete
// ============================================================================

func (suite *StoreTestSuite) testFolderDelete(t *testing.T) {
	t.Run("CascadesToDescendants", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/docs/2024")
		putFile(t, store, "/docs/2024/report.txt", 10)
		putFile(t, store, "/docs/readme.txt", 3)

		err := store.DeleteFolder(context.Background(), testOwner, "/docs")
		require.NoError(t, err)

		_, err = store.FindFolder(context.Background(), testOwner, "/docs")
		AssertErrorCode(t, metadata.ErrNotFound, err)
		_, err = store.FindFolder(context.Background(), testOwner, "/docs/2024")
		AssertErrorCode(t, metadata.ErrNotFound, err)
		_, err = store.FindFile(context.Background(), testOwner, "/docs/2024/report.txt")
		AssertErrorCode(t, metadata.ErrNotFound, err)

		used, err := store.CalculateUsedStorage(context.Background(), testOwner)
		require.NoError(t, err)
		assert.Equal(t, int64(0), used, "deleted file rows must no longer count against usage")
	})

	t.Run("ErrorDeleteRoot", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		err := store.DeleteFolder(context.Background(), testOwner, "/")
		AssertErrorCode(t, metadata.ErrInvalidArgument, err)
	})

	t.Run("ErrorNotFound", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		err := store.DeleteFolder(context.Background(), testOwner, "/missing")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})
}

// ============================================================================
// List
// ============================================================================

func (suite *StoreTestSuite) testFolderList(t *testing.T) {
	t.Run("ListsDirectChildrenOnly", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/a/nested")
		createFolder(t, store, "/b")
		putFile(t, store, "/top.txt", 1)

		folders, err := store.ListSubfolders(context.Background(), testOwner, "/")
		require.NoError(t, err)
		names := make([]string, 0, len(folders))
		for _, f := range folders {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"a", "b"}, names)

		files, err := store.ListFiles(context.Background(), testOwner, "/")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "top.txt", files[0].Name)
	})

	t.Run("EmptyFolder", func(t *testing.T) {
		store := suite.NewStore(t)
		createFolder(t, store, "/empty")

		folders, err := store.ListSubfolders(context.Background(), testOwner, "/empty")
		require.NoError(t, err)
		assert.Empty(t, folders)

		files, err := store.ListFiles(context.Background(), testOwner, "/empty")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("ErrorNotFound", func(t *testing.T) {
		store := suite.NewStore(t)
		createRoot(t, store)

		_, err := store.ListSubfolders(context.Background(), testOwner, "/missing")
		AssertErrorCode(t, metadata.ErrNotFound, err)
	})
}
