// Package sqlite implements a dummy enrollment storage backend using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/enrollment"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Store persists dummy enrollment records in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanRecord(scan func(...any) error, dest ...any) (*enrollment.Record, error) {
	var courseRunID sql.NullString
	var raw []byte
	rec := new(enrollment.Record)
	if err := scan(append(dest, &rec.ID, &rec.IsActive, &courseRunID, &raw)...); err != nil {
		return nil, err
	}
	rec.CourseRunID = courseRunID.String
	rec.Raw = raw
	return rec, nil
}

// RetrieveRecord implements the storage interface method.
func (s *Store) RetrieveRecord(ctx context.Context, resourceLink, username string) (*enrollment.Record, error) {
	if err := storage.ValidKey(resourceLink, username); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT record_id, is_active, course_run_id, raw FROM dummy_enrollments WHERE username = ? AND resource_link = ?`,
		username, resourceLink,
	)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRecordNotFound, resourceLink)
	}
	return rec, err
}

// RetrieveUserRecords implements the storage interface method.
func (s *Store) RetrieveUserRecords(ctx context.Context, username string) (map[string]*enrollment.Record, error) {
	if username == "" {
		return nil, storage.ErrMissingKey
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT resource_link, record_id, is_active, course_run_id, raw FROM dummy_enrollments WHERE username = ?`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	r := make(map[string]*enrollment.Record)
	for rows.Next() {
		var link string
		rec, err := scanRecord(rows.Scan, &link)
		if err != nil {
			return r, err
		}
		r[link] = rec
	}
	return r, rows.Err()
}

// StoreRecord implements the storage interface method.
func (s *Store) StoreRecord(ctx context.Context, resourceLink, username string, rec *enrollment.Record) error {
	if err := storage.ValidKey(resourceLink, username); err != nil {
		return err
	}
	if rec == nil {
		return storage.ErrEmptyRecord
	}
	var courseRunID sql.NullString
	if rec.CourseRunID != "" {
		courseRunID = sql.NullString{String: rec.CourseRunID, Valid: true}
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO dummy_enrollments (username, resource_link, record_id, is_active, course_run_id, raw, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (username, resource_link) DO UPDATE SET
    record_id = excluded.record_id,
    is_active = excluded.is_active,
    course_run_id = excluded.course_run_id,
    raw = excluded.raw,
    updated_at = excluded.updated_at`,
		username, resourceLink, rec.ID, rec.IsActive, courseRunID, []byte(rec.Raw), time.Now().UTC().UnixMilli(),
	)
	return err
}

// DeleteRecord implements the storage interface method.
func (s *Store) DeleteRecord(ctx context.Context, resourceLink, username string) error {
	if err := storage.ValidKey(resourceLink, username); err != nil {
		return err
	}
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM dummy_enrollments WHERE username = ? AND resource_link = ?`,
		username, resourceLink,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n < 1 {
		return fmt.Errorf("%w: %s", storage.ErrRecordNotFound, resourceLink)
	}
	return nil
}
