// Package diskv implements a storage backend for the dummy enrollment backend backed by diskv.
package diskv

import (
	"path/filepath"

	"github.com/openfun/richie-sub000/backend/dummy/storage/kv"
	"github.com/openfun/richie-sub000/utils/kv/kvdiskv"

	"github.com/peterbourgon/diskv/v3"
)

// Diskv is a dummy enrollment storage backend that uses an on-disk key-value store.
type Diskv struct {
	*kv.KV
}

// New creates a new enrollment store on disk at path.
func New(path string) *Diskv {
	return &Diskv{
		KV: kv.New(kvdiskv.NewBucket(diskv.New(diskv.Options{
			BasePath:     filepath.Join(path, "enrollment"),
			Transform:    kvdiskv.FlatTransform,
			CacheSizeMax: 1024 * 1024,
		}))),
	}
}
