package test

import (
	"context"
	"errors"
	"testing"

	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/enrollment"
)

func TestDummyStorage(t *testing.T, newStorage func() storage.Storage) {
	s := newStorage()
	ctx := context.Background()

	link := "https://lms.test/courses/course-v1:org+code+run/course/"
	link2 := "https://lms.test/courses/course-v1:org+code+run2/course/"

	_, err := s.RetrieveRecord(ctx, link, "jane")
	if !errors.Is(err, storage.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, have: %v", err)
	}

	rec := &enrollment.Record{ID: "01AB", IsActive: true, CourseRunID: "run"}
	if err = s.StoreRecord(ctx, link, "jane", rec); err != nil {
		t.Fatal(err)
	}

	rec2, err := s.RetrieveRecord(ctx, link, "jane")
	if err != nil {
		t.Fatal(err)
	}

	if have, want := rec2.ID, rec.ID; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if have, want := rec2.IsActive, rec.IsActive; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if have, want := rec2.CourseRunID, rec.CourseRunID; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	// another user must not see jane's record
	_, err = s.RetrieveRecord(ctx, link, "john")
	if !errors.Is(err, storage.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound for other user, have: %v", err)
	}

	// replace
	rec.IsActive = false
	if err = s.StoreRecord(ctx, link, "jane", rec); err != nil {
		t.Fatal(err)
	}
	rec2, err = s.RetrieveRecord(ctx, link, "jane")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := rec2.IsActive, false; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	if err = s.StoreRecord(ctx, link2, "jane", &enrollment.Record{ID: "23CD", IsActive: true}); err != nil {
		t.Fatal(err)
	}

	recs, err := s.RetrieveUserRecords(ctx, "jane")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := len(recs), 2; have != want {
		t.Fatalf("have: %v, want: %v", have, want)
	}
	if r, ok := recs[link2]; !ok || r.ID != "23CD" {
		t.Errorf("record for %s not found in user records", link2)
	}

	recs, err = s.RetrieveUserRecords(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no records, have: %d", len(recs))
	}

	if err = s.StoreRecord(ctx, "", "jane", rec); !errors.Is(err, storage.ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, have: %v", err)
	}
	if err = s.StoreRecord(ctx, link, "jane", nil); !errors.Is(err, storage.ErrEmptyRecord) {
		t.Errorf("expected ErrEmptyRecord, have: %v", err)
	}

	if err = s.DeleteRecord(ctx, link, "jane"); err != nil {
		t.Fatal(err)
	}
	_, err = s.RetrieveRecord(ctx, link, "jane")
	if !errors.Is(err, storage.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound after delete, have: %v", err)
	}
	if err = s.DeleteRecord(ctx, link, "jane"); !errors.Is(err, storage.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound deleting twice, have: %v", err)
	}

	// clean up for backends that persist across test runs
	if err = s.DeleteRecord(ctx, link2, "jane"); err != nil {
		t.Fatal(err)
	}
}
