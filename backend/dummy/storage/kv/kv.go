// Package kv implements a dummy enrollment storage backend using key-value storage.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/enrollment"
	"github.com/openfun/richie-sub000/utils/kv"
)

const keySep = "\x1f"

// KV is a dummy enrollment storage backend using key-value storage.
type KV struct {
	mu sync.RWMutex
	b  kv.TraversingBucket
}

func New(b kv.TraversingBucket) *KV {
	return &KV{b: b}
}

func userPrefix(username string) string {
	return "rec" + keySep + username + keySep
}

func recordKey(resourceLink, username string) string {
	return userPrefix(username) + resourceLink
}

// RetrieveRecord returns the enrollment record from the key-value store.
func (s *KV) RetrieveRecord(ctx context.Context, resourceLink, username string) (*enrollment.Record, error) {
	if err := storage.ValidKey(resourceLink, username); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ctx, recordKey(resourceLink, username))
}

func (s *KV) get(ctx context.Context, key string) (*enrollment.Record, error) {
	raw, err := s.b.Get(ctx, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %v", storage.ErrRecordNotFound, err)
	} else if err != nil {
		return nil, err
	}
	rec := new(enrollment.Record)
	if err = json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// RetrieveUserRecords returns all records of username in the key-value store.
func (s *KV) RetrieveUserRecords(ctx context.Context, username string) (map[string]*enrollment.Record, error) {
	if username == "" {
		return nil, storage.ErrMissingKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	pfx := userPrefix(username)
	keys, err := kv.KeysPrefix(ctx, s.b, pfx)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	r := make(map[string]*enrollment.Record)
	for _, k := range keys {
		rec, err := s.get(ctx, k)
		if err != nil {
			return r, fmt.Errorf("getting %s: %w", strings.TrimPrefix(k, pfx), err)
		}
		r[strings.TrimPrefix(k, pfx)] = rec
	}
	return r, nil
}

// StoreRecord stores the enrollment record in the key-value store.
func (s *KV) StoreRecord(ctx context.Context, resourceLink, username string, rec *enrollment.Record) error {
	if err := storage.ValidKey(resourceLink, username); err != nil {
		return err
	}
	if rec == nil {
		return storage.ErrEmptyRecord
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Set(ctx, recordKey(resourceLink, username), raw)
}

// DeleteRecord deletes the enrollment record from the key-value store.
func (s *KV) DeleteRecord(ctx context.Context, resourceLink, username string) error {
	if err := storage.ValidKey(resourceLink, username); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey(resourceLink, username)
	if ok, err := s.b.Has(ctx, key); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", storage.ErrRecordNotFound, resourceLink)
	}
	return kv.DeleteSlice(ctx, s.b, []string{key})
}
