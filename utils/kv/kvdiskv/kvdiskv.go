// Package kvdiskv wraps diskv to a standard interface for a key-value store.
package kvdiskv

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/openfun/richie-sub000/utils/kv"

	"github.com/peterbourgon/diskv/v3"
)

// KVDiskv wraps a diskv object to implement an on-disk key-value store.
// Keys are hex encoded on disk as they may contain path separators
// (e.g. resource link URLs).
type KVDiskv struct {
	diskv *diskv.Diskv
}

func NewBucket(dv *diskv.Diskv) *KVDiskv {
	return &KVDiskv{diskv: dv}
}

// FlatTransform stores every key in the base directory.
func FlatTransform(string) []string { return []string{} }

func encode(k string) string {
	return hex.EncodeToString([]byte(k))
}

func (s *KVDiskv) Get(_ context.Context, k string) ([]byte, error) {
	if !s.diskv.Has(encode(k)) {
		return nil, fmt.Errorf("%w: %s", kv.ErrKeyNotFound, k)
	}
	return s.diskv.Read(encode(k))
}

func (s *KVDiskv) Set(_ context.Context, k string, v []byte) error {
	return s.diskv.Write(encode(k), v)
}

func (s *KVDiskv) Has(_ context.Context, k string) (bool, error) {
	return s.diskv.Has(encode(k)), nil
}

func (s *KVDiskv) Delete(_ context.Context, k string) error {
	if !s.diskv.Has(encode(k)) {
		return nil
	}
	return s.diskv.Erase(encode(k))
}

func (s *KVDiskv) Keys(cancel <-chan struct{}) <-chan string {
	r := make(chan string)
	go func() {
		defer close(r)
		for ek := range s.diskv.Keys(cancel) {
			k, err := hex.DecodeString(ek)
			if err != nil {
				continue
			}
			select {
			case <-cancel:
				return
			case r <- string(k):
			}
		}
	}()
	return r
}
