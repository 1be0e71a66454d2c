package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// RunKeyTests executes all key record tests.
func (suite *StoreTestSuite) RunKeyTests(t *testing.T) {
	t.Run("AddAndGet", suite.testKeyAddAndGet)
	t.Run("GetAbsent", suite.testKeyGetAbsent)
	t.Run("AddDuplicate", suite.testKeyAddDuplicate)
}

func (suite *StoreTestSuite) testKeyAddAndGet(t *testing.T) {
	store := suite.NewStore(t)

	added, err := store.AddKey(context.Background(), &metadata.Key{
		ID:           "fingerprint-1",
		PublicKey:    "-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----",
		StorageLimit: 1024,
		Activated:    true,
	})
	require.NoError(t, err)
	require.Equal(t, "fingerprint-1", added.ID)

	got, err := store.GetKey(context.Background(), "fingerprint-1")
	require.NoError(t, err)
	require.Equal(t, added, got)
}

func (suite *StoreTestSuite) testKeyGetAbsent(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.GetKey(context.Background(), "missing")
	AssertErrorCode(t, metadata.ErrNotFound, err)
}

func (suite *StoreTestSuite) testKeyAddDuplicate(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.AddKey(context.Background(), &metadata.Key{ID: "fingerprint-1"})
	require.NoError(t, err)

	_, err = store.AddKey(context.Background(), &metadata.Key{ID: "fingerprint-1"})
	AssertErrorCode(t, metadata.ErrAlreadyExists, err)
}
