package storageflag

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/openfun/richie-sub000/enrollment"
)

func TestParse(t *testing.T) {
	dir := t.TempDir()
	for _, tc := range []struct {
		name string
		dsn  string
	}{
		{"inmem", ""},
		{"file", filepath.Join(dir, "diskv")},
		{"sqlite", filepath.Join(dir, "test.db")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, closeFn, err := Parse(tc.name, tc.dsn)
			if err != nil {
				t.Fatal(err)
			}
			defer closeFn()
			ctx := context.Background()
			rec := &enrollment.Record{ID: "1", IsActive: true}
			if err = s.StoreRecord(ctx, "http://lms.test/1", "learner", rec); err != nil {
				t.Fatal(err)
			}
			have, err := s.RetrieveRecord(ctx, "http://lms.test/1", "learner")
			if err != nil {
				t.Fatal(err)
			}
			if have.ID != "1" || !have.IsActive {
				t.Errorf("have %+v", have)
			}
		})
	}
	if _, _, err := Parse("bogus", ""); err == nil {
		t.Error("expected error for unknown storage")
	}
}
