package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metadata"
	metadatatesting "github.com/driftfs/driftfs/pkg/metadata/testing"
)

func TestBadgerMetadataStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			store, err := NewBadgerMetadataStoreWithDefaults(context.Background(), t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
	suite.Run(t)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadgerMetadataStoreWithDefaults(context.Background(), dir)
	require.NoError(t, err)

	_, err = store.EnsureRootFolder(context.Background(), "owner")
	require.NoError(t, err)
	_, err = store.CreateFolderPath(context.Background(), "owner", "/docs/2024")
	require.NoError(t, err)
	_, err = store.UpsertFile(context.Background(), "owner", &metadata.File{
		StorageID: "node-1",
		FullPath:  "/docs/2024/report.txt",
		Size:      12,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewBadgerMetadataStoreWithDefaults(context.Background(), dir)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	file, err := reopened.FindFile(context.Background(), "owner", "/docs/2024/report.txt")
	require.NoError(t, err)
	require.Equal(t, int64(12), file.Size)

	used, err := reopened.CalculateUsedStorage(context.Background(), "owner")
	require.NoError(t, err)
	require.Equal(t, int64(12), used)
}
