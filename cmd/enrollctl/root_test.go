package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/engine"
	"github.com/openfun/richie-sub000/enrollment"
)

const link = "http://lms.test/courses/x/course"

func run(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

func step(t *testing.T, out *bytes.Buffer) enrollment.Step {
	t.Helper()
	var res struct {
		View engine.View `json:"view"`
	}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decoding %s: %v", out, err)
	}
	return res.View.Step
}

func TestEnrollCycle(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")
	flags := []string{"--storage", "file", "--storage-dsn", db, "--username", "learner"}

	out, err := run(t, append([]string{"state", link}, flags...)...)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := step(t, out), enrollment.Idle; have != want {
		t.Errorf("step: have %v, want %v", have, want)
	}

	out, err = run(t, append([]string{"enroll", link}, flags...)...)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := step(t, out), enrollment.Enrolled; have != want {
		t.Errorf("step: have %v, want %v", have, want)
	}

	// persisted across invocations
	out, err = run(t, append([]string{"state", link}, flags...)...)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := step(t, out), enrollment.Enrolled; have != want {
		t.Errorf("step: have %v, want %v", have, want)
	}

	if _, err = run(t, append([]string{"enroll", link}, flags...)...); !errors.Is(err, engine.ErrNotOffered) {
		t.Errorf("enroll twice: have %v, want %v", err, engine.ErrNotOffered)
	}
}

func TestAnonymousAndClosed(t *testing.T) {
	out, err := run(t, "state", link, "--storage", "inmem")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := step(t, out), enrollment.Anonymous; have != want {
		t.Errorf("step: have %v, want %v", have, want)
	}

	out, err = run(t, "state", link, "--storage", "inmem", "--username", "learner", "--priority", "archived_closed")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := step(t, out), enrollment.Closed; have != want {
		t.Errorf("step: have %v, want %v", have, want)
	}

	if _, err = run(t, "state", link, "--storage", "inmem", "--priority", "bogus"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestResolve(t *testing.T) {
	out, err := run(t, "resolve", link, "--storage", "inmem")
	if err != nil {
		t.Fatal(err)
	}
	var have map[string]any
	if err = json.Unmarshal(out.Bytes(), &have); err != nil {
		t.Fatal(err)
	}
	if have["name"] != "dummy" || have["can_unenroll"] != true {
		t.Errorf("have %v", have)
	}
}

func TestRecordsAndReset(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")
	flags := []string{"--storage", "file", "--storage-dsn", db, "--username", "learner"}

	if _, err := run(t, append([]string{"enroll", link}, flags...)...); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, append([]string{"records"}, flags...)...)
	if err != nil {
		t.Fatal(err)
	}
	var recs map[string]*enrollment.Record
	if err = json.Unmarshal(out.Bytes(), &recs); err != nil {
		t.Fatalf("decoding %s: %v", out, err)
	}
	if rec, ok := recs[link]; !ok || !rec.IsActive {
		t.Errorf("records: have %v", recs)
	}

	if _, err = run(t, append([]string{"reset", link}, flags...)...); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, append([]string{"state", link}, flags...)...)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := step(t, out), enrollment.Idle; have != want {
		t.Errorf("step after reset: have %v, want %v", have, want)
	}

	if _, err = run(t, append([]string{"reset", link}, flags...)...); !errors.Is(err, storage.ErrRecordNotFound) {
		t.Errorf("reset twice: have %v, want %v", err, storage.ErrRecordNotFound)
	}
	if _, err = run(t, "records", "--storage", "inmem"); !errors.Is(err, enrollment.ErrMissingUser) {
		t.Errorf("no username: have %v, want %v", err, enrollment.ErrMissingUser)
	}
}
