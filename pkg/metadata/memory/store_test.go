package memory

import (
	"testing"

	"github.com/driftfs/driftfs/pkg/metadata"
	metadatatesting "github.com/driftfs/driftfs/pkg/metadata/testing"
)

func TestMemoryMetadataStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(_ *testing.T) metadata.Store {
			return NewMemoryMetadataStore()
		},
	}
	suite.Run(t)
}
