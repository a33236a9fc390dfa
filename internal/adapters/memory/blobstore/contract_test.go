package blobstore

import (
	"testing"

	"github.com/alubilles/membership-api/internal/adapters/contracttest"
	blobport "github.com/alubilles/membership-api/internal/ports/out/blobstore"
)

func TestContract_BlobStore(t *testing.T) {
	contracttest.RunBlobStore(t, func(t *testing.T) (blobport.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
