// Package storageflag opens a dummy backend storage selected by name.
package storageflag

import (
	"fmt"

	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/backend/dummy/storage/diskv"
	"github.com/openfun/richie-sub000/backend/dummy/storage/inmem"
	"github.com/openfun/richie-sub000/backend/dummy/storage/mysql"
	"github.com/openfun/richie-sub000/backend/dummy/storage/sqlite"

	_ "github.com/go-sql-driver/mysql"
)

// Usage is a flag usage string for the storage name.
const Usage = "name of dummy backend storage (inmem, file, mysql, sqlite)"

// Parse opens the storage called name with dsn.
// The returned close function releases its resources.
func Parse(name, dsn string) (storage.Storage, func() error, error) {
	nop := func() error { return nil }
	switch name {
	case "inmem":
		return inmem.New(), nop, nil
	case "file", "diskv":
		if dsn == "" {
			dsn = "db"
		}
		return diskv.New(dsn), nop, nil
	case "mysql":
		s, err := mysql.New(mysql.WithDSN(dsn))
		if err != nil {
			return nil, nil, fmt.Errorf("creating mysql storage: %w", err)
		}
		return s, nop, nil
	case "sqlite":
		if dsn == "" {
			dsn = "enrollment.db"
		}
		s, err := sqlite.Open(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("creating sqlite storage: %w", err)
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage: %s", name)
}
