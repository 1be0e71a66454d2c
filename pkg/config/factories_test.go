package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMetadataStoreMemory(t *testing.T) {
	store, err := CreateMetadataStore(context.Background(), &MetadataConfig{Type: "memory"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.EnsureRootFolder(context.Background(), "owner")
	require.NoError(t, err)
}

func TestCreateMetadataStoreBadger(t *testing.T) {
	store, err := CreateMetadataStore(context.Background(), &MetadataConfig{
		Type:   "badger",
		Badger: map[string]any{"path": t.TempDir()},
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.EnsureRootFolder(context.Background(), "owner")
	require.NoError(t, err)
}

func TestCreateMetadataStoreBadgerRequiresPath(t *testing.T) {
	_, err := CreateMetadataStore(context.Background(), &MetadataConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path")
}

func TestCreateMetadataStoreUnknownType(t *testing.T) {
	_, err := CreateMetadataStore(context.Background(), &MetadataConfig{Type: "postgres"})
	require.Error(t, err)
}

func TestCreateStoragePoolHTTP(t *testing.T) {
	pool, descriptors, err := CreateStoragePool(context.Background(), []StorageNodeConfig{
		{ID: "node-1", Type: "http", URL: "http://node-1:9000", Token: "secret", Capacity: 1000, Priority: 2},
	})
	require.NoError(t, err)

	_, err = pool.Get("node-1")
	require.NoError(t, err)

	require.Len(t, descriptors, 1)
	assert.Equal(t, "node-1", descriptors[0].ID)
	assert.Equal(t, "http://node-1:9000", descriptors[0].URL)
	assert.Equal(t, int64(1000), descriptors[0].Capacity)
	assert.Equal(t, 2, descriptors[0].Priority)
	assert.Equal(t, int64(0), descriptors[0].UsedSpace, "cached usage starts at zero; the store preserves it on reseed")
}

func TestCreateStoragePoolUnknownType(t *testing.T) {
	_, _, err := CreateStoragePool(context.Background(), []StorageNodeConfig{
		{ID: "node-1", Type: "ftp", Capacity: 1000},
	})
	require.Error(t, err)
}
