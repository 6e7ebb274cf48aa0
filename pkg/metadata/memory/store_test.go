package memory

import (
	"testing"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metadata/storetest"
)

func TestMemoryStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			return NewMemoryStore()
		},
	}
	suite.Run(t)
}
