package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// RunStorageTests executes all storage node descriptor tests.
func (suite *StoreTestSuite) RunStorageTests(t *testing.T) {
	t.Run("UpsertAndGet", suite.testStorageUpsertAndGet)
	t.Run("UpdatePreservesUsedSpace", suite.testStorageUpdatePreservesUsedSpace)
	t.Run("List", suite.testStorageList)
	t.Run("SetUsedSpace", suite.testStorageSetUsedSpace)
}

func (suite *StoreTestSuite) testStorageUpsertAndGet(t *testing.T) {
	store := suite.NewStore(t)

	created, err := store.UpsertStorage(context.Background(), &metadata.Storage{
		ID:       "node-1",
		URL:      "http://node-1.internal:9000",
		Token:    "secret",
		Capacity: 1 << 30,
		Priority: 1,
	})
	require.NoError(t, err)

	got, err := store.GetStorage(context.Background(), "node-1")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = store.GetStorage(context.Background(), "missing")
	AssertErrorCode(t, metadata.ErrNotFound, err)
}

func (suite *StoreTestSuite) testStorageUpdatePreservesUsedSpace(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.UpsertStorage(context.Background(), &metadata.Storage{
		ID:       "node-1",
		URL:      "http://old:9000",
		Capacity: 100,
		Priority: 1,
	})
	require.NoError(t, err)
	require.NoError(t, store.SetStorageUsedSpace(context.Background(), "node-1", 40))

	// Reconfiguration must not clobber the usage figure.
	updated, err := store.UpsertStorage(context.Background(), &metadata.Storage{
		ID:       "node-1",
		URL:      "http://new:9000",
		Capacity: 200,
		Priority: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://new:9000", updated.URL)
	assert.Equal(t, int64(200), updated.Capacity)
	assert.Equal(t, int64(40), updated.UsedSpace)
	assert.Equal(t, int64(160), updated.Free())
}

func (suite *StoreTestSuite) testStorageList(t *testing.T) {
	store := suite.NewStore(t)

	for _, id := range []string{"node-b", "node-a", "node-c"} {
		_, err := store.UpsertStorage(context.Background(), &metadata.Storage{ID: id, Priority: 1})
		require.NoError(t, err)
	}

	storages, err := store.ListStorages(context.Background())
	require.NoError(t, err)
	require.Len(t, storages, 3)
	assert.Equal(t, "node-a", storages[0].ID)
	assert.Equal(t, "node-b", storages[1].ID)
	assert.Equal(t, "node-c", storages[2].ID)
}

func (suite *StoreTestSuite) testStorageSetUsedSpace(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.UpsertStorage(context.Background(), &metadata.Storage{ID: "node-1", Capacity: 100, Priority: 1})
	require.NoError(t, err)

	require.NoError(t, store.SetStorageUsedSpace(context.Background(), "node-1", 73))
	got, err := store.GetStorage(context.Background(), "node-1")
	require.NoError(t, err)
	assert.Equal(t, int64(73), got.UsedSpace)

	err = store.SetStorageUsedSpace(context.Background(), "missing", 1)
	AssertErrorCode(t, metadata.ErrNotFound, err)
}
