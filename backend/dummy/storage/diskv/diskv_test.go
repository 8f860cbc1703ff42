package diskv

import (
	"testing"

	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/backend/dummy/storage/test"
)

func TestDiskv(t *testing.T) {
	test.TestDummyStorage(t, func() storage.Storage { return New(t.TempDir()) })
}
