// Package testing provides a reusable contract test suite for metadata.Store
// implementations.
package testing

import (
	"testing"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// StoreTestSuite is a comprehensive test suite for metadata.Store
// implementations. It tests the interface contract, not implementation
// details, making it reusable across different implementations (memory,
// badger, future databases).
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh Store instance
	// for each test. This ensures test isolation.
	NewStore func(t *testing.T) metadata.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Keys", suite.RunKeyTests)
	t.Run("Folders", suite.RunFolderTests)
	t.Run("Files", suite.RunFileTests)
	t.Run("Storages", suite.RunStorageTests)
}
