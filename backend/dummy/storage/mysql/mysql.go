// Package mysql implements a dummy enrollment storage backend using MySQL.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/enrollment"
)

// MySQLStorage implements a storage.Storage using MySQL.
type MySQLStorage struct {
	db *sql.DB
}

type config struct {
	driver string
	dsn    string
	db     *sql.DB
}

// Option allows configuring a MySQLStorage.
type Option func(*config)

// WithDSN sets the storage MySQL data source name.
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = dsn
	}
}

// WithDriver sets a custom MySQL driver for the storage.
// Default driver is "mysql" but is ignored if WithDB is used.
func WithDriver(driver string) Option {
	return func(c *config) {
		c.driver = driver
	}
}

// WithDB sets a custom MySQL *sql.DB to the storage.
// If set, driver passed via WithDriver is ignored.
func WithDB(db *sql.DB) Option {
	return func(c *config) {
		c.db = db
	}
}

// New creates and returns a new MySQL.
func New(opts ...Option) (*MySQLStorage, error) {
	cfg := &config{driver: "mysql"}
	for _, opt := range opts {
		opt(cfg)
	}
	var err error
	if cfg.db == nil {
		cfg.db, err = sql.Open(cfg.driver, cfg.dsn)
		if err != nil {
			return nil, err
		}
	}
	if err = cfg.db.Ping(); err != nil {
		return nil, err
	}
	return &MySQLStorage{db: cfg.db}, nil
}

// sqlNullString sets Valid to true of the return value of s is not empty.
func sqlNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// RetrieveRecord implements the storage interface method.
func (s *MySQLStorage) RetrieveRecord(ctx context.Context, resourceLink, username string) (*enrollment.Record, error) {
	if err := storage.ValidKey(resourceLink, username); err != nil {
		return nil, err
	}
	var courseRunID sql.NullString
	var raw []byte
	rec := new(enrollment.Record)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT record_id, is_active, course_run_id, raw FROM dummy_enrollments WHERE username = ? AND resource_link = ?;`,
		username, resourceLink,
	).Scan(&rec.ID, &rec.IsActive, &courseRunID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRecordNotFound, resourceLink)
	} else if err != nil {
		return nil, err
	}
	rec.CourseRunID = courseRunID.String
	rec.Raw = raw
	return rec, nil
}

// RetrieveUserRecords implements the storage interface method.
func (s *MySQLStorage) RetrieveUserRecords(ctx context.Context, username string) (map[string]*enrollment.Record, error) {
	if username == "" {
		return nil, storage.ErrMissingKey
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT resource_link, record_id, is_active, course_run_id, raw FROM dummy_enrollments WHERE username = ?;`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	r := make(map[string]*enrollment.Record)
	for rows.Next() {
		var link string
		var courseRunID sql.NullString
		var raw []byte
		rec := new(enrollment.Record)
		if err = rows.Scan(&link, &rec.ID, &rec.IsActive, &courseRunID, &raw); err != nil {
			return r, err
		}
		rec.CourseRunID = courseRunID.String
		rec.Raw = raw
		r[link] = rec
	}
	return r, rows.Err()
}

// StoreRecord implements the storage interface method.
func (s *MySQLStorage) StoreRecord(ctx context.Context, resourceLink, username string, rec *enrollment.Record) error {
	if err := storage.ValidKey(resourceLink, username); err != nil {
		return err
	}
	if rec == nil {
		return storage.ErrEmptyRecord
	}
	_, err := s.db.ExecContext(
		ctx,
		`
INSERT INTO dummy_enrollments
    (username, resource_link, record_id, is_active, course_run_id, raw)
VALUES
    (?, ?, ?, ?, ?, ?) AS new
ON DUPLICATE KEY
UPDATE
    record_id = new.record_id,
    is_active = new.is_active,
    course_run_id = new.course_run_id,
    raw = new.raw;`,
		username, resourceLink, rec.ID, rec.IsActive, sqlNullString(rec.CourseRunID), []byte(rec.Raw),
	)
	return err
}

// DeleteRecord implements the storage interface method.
func (s *MySQLStorage) DeleteRecord(ctx context.Context, resourceLink, username string) error {
	if err := storage.ValidKey(resourceLink, username); err != nil {
		return err
	}
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM dummy_enrollments WHERE username = ? AND resource_link = ?;`,
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
