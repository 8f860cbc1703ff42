// Package storage defines types and methods for a dummy backend enrollment storage.
package storage

import (
	"context"
	"errors"

	"github.com/openfun/richie-sub000/enrollment"
)

var (
	ErrRecordNotFound = errors.New("enrollment record not found")
	ErrMissingKey     = errors.New("missing resource link or username")
	ErrEmptyRecord    = errors.New("empty enrollment record")
)

// ValidKey checks that both parts of a record key are present.
func ValidKey(resourceLink, username string) error {
	if resourceLink == "" || username == "" {
		return ErrMissingKey
	}
	return nil
}

type ReadStorage interface {
	// RetrieveRecord returns the enrollment record of username for resourceLink.
	// ErrRecordNotFound is returned if no record has been stored.
	RetrieveRecord(ctx context.Context, resourceLink, username string) (*enrollment.Record, error)

	// RetrieveUserRecords returns every record of username keyed by resource link.
	// An empty map is returned for a user without records.
	RetrieveUserRecords(ctx context.Context, username string) (map[string]*enrollment.Record, error)
}

type Storage interface {
	ReadStorage

	// StoreRecord creates or replaces the record of username for resourceLink.
	StoreRecord(ctx context.Context, resourceLink, username string, rec *enrollment.Record) error

	// DeleteRecord removes the record of username for resourceLink.
	// ErrRecordNotFound is returned for a record that hasn't been stored.
	DeleteRecord(ctx context.Context, resourceLink, username string) error
}
