// Package inmem implements an in-memory storage backend for the dummy enrollment backend.
package inmem

import (
	"github.com/openfun/richie-sub000/backend/dummy/storage/kv"
	"github.com/openfun/richie-sub000/utils/kv/kvmap"
)

// InMem is a dummy enrollment storage backend using an in-memory key-value store.
type InMem struct {
	*kv.KV
}

func New() *InMem {
	return &InMem{KV: kv.New(kvmap.NewBucket())}
}
