// Package dummy implements an enrollment capability that keeps records in
// local storage. It stands in for a real learning platform in development
// and tests.
package dummy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/enrollment"

	"github.com/google/uuid"
)

// Dummy is an enrollment backend over a record storage.
type Dummy struct {
	store   storage.Storage
	newID   func() string
	latency time.Duration
}

// Option configures the dummy backend.
type Option func(*Dummy)

// WithLatency delays every call by d to simulate a remote backend.
func WithLatency(d time.Duration) Option {
	return func(b *Dummy) {
		b.latency = d
	}
}

// WithIDGenerator sets the generator of new record IDs.
func WithIDGenerator(f func() string) Option {
	return func(b *Dummy) {
		b.newID = f
	}
}

// New creates a new dummy backend storing records in store.
func New(store storage.Storage, opts ...Option) *Dummy {
	b := &Dummy{
		store: store,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Dummy) wait(ctx context.Context) error {
	if b.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get retrieves the stored record of user for the course run.
func (b *Dummy) Get(ctx context.Context, resourceLink string, user *enrollment.User) (*enrollment.Record, error) {
	if user == nil {
		return nil, enrollment.ErrMissingUser
	}
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	rec, err := b.store.RetrieveRecord(ctx, resourceLink, user.Username)
	if errors.Is(err, storage.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("retrieving record: %w", err)
	}
	return rec, nil
}

// Set stores a record for user with the isActive flag.
func (b *Dummy) Set(ctx context.Context, resourceLink string, user *enrollment.User, existing *enrollment.Record, isActive bool) (bool, error) {
	if user == nil {
		return false, enrollment.ErrMissingUser
	}
	if err := b.wait(ctx); err != nil {
		return false, err
	}
	var rec *enrollment.Record
	if existing != nil {
		rec = &enrollment.Record{ID: existing.ID, CourseRunID: existing.CourseRunID}
	} else {
		rec = &enrollment.Record{ID: b.newID(), CourseRunID: resourceLink}
	}
	rec.IsActive = isActive
	if err := b.store.StoreRecord(ctx, resourceLink, user.Username, rec); err != nil {
		return false, fmt.Errorf("storing record: %w", err)
	}
	return rec.IsActive, nil
}

// IsEnrolled returns the active flag of rec.
func (b *Dummy) IsEnrolled(rec *enrollment.Record) enrollment.Fact[bool] {
	return enrollment.IsActive(rec)
}

// CanUnenroll returns true.
func (b *Dummy) CanUnenroll() bool {
	return true
}
