package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/openfun/richie-sub000/backend"
	"github.com/openfun/richie-sub000/enrollment"
	"github.com/openfun/richie-sub000/session"
)

func newTestEngine(t *testing.T, capability enrollment.Capability, user *enrollment.User) *Engine {
	t.Helper()
	resolver, err := backend.NewResolver(&backend.Descriptor{
		Name:       "fake",
		Family:     backend.FamilyDummy,
		Prefix:     "http://lms.test/",
		Capability: capability,
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(resolver, session.NewStatic(user))
}

func TestRunNoBackend(t *testing.T) {
	e := newTestEngine(t, newFakeCapability(nil), testUser)
	cr := openCourseRun()
	cr.ResourceLink = "http://elsewhere.test/course-runs/1/"
	if _, err := e.Run(context.Background(), cr, ""); !errors.Is(err, enrollment.ErrNoBackend) {
		t.Errorf("have %v, want %v", err, enrollment.ErrNoBackend)
	}
}

func TestRunState(t *testing.T) {
	e := newTestEngine(t, newFakeCapability(&enrollment.Record{ID: "1", IsActive: true}), testUser)
	res, err := e.Run(context.Background(), openCourseRun(), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Backend != "fake" {
		t.Errorf("backend: have %q, want %q", res.Backend, "fake")
	}
	if res.View.Step != enrollment.Enrolled {
		t.Errorf("step: have %v, want %v", res.View.Step, enrollment.Enrolled)
	}
}

func TestRunEnroll(t *testing.T) {
	capability := newFakeCapability(nil)
	e := newTestEngine(t, capability, testUser)
	res, err := e.Run(context.Background(), openCourseRun(), ControlEnroll)
	if err != nil {
		t.Fatal(err)
	}
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.State.Step != enrollment.Enrolled {
		t.Errorf("step: have %v, want %v", res.State.Step, enrollment.Enrolled)
	}

	// enrolling twice is not offered
	_, err = e.Run(context.Background(), openCourseRun(), ControlEnroll)
	if !errors.Is(err, ErrNotOffered) {
		t.Errorf("have %v, want %v", err, ErrNotOffered)
	}
	if _, sets := capability.calls(); len(sets) != 1 {
		t.Errorf("sets: have %v, want 1", sets)
	}
}

func TestRunAnonymousNotOffered(t *testing.T) {
	capability := newFakeCapability(nil)
	e := newTestEngine(t, capability, nil)
	if _, err := e.Run(context.Background(), openCourseRun(), ControlEnroll); !errors.Is(err, ErrNotOffered) {
		t.Errorf("have %v, want %v", err, ErrNotOffered)
	}
	if gets, sets := capability.calls(); gets != 0 || len(sets) != 0 {
		t.Errorf("calls: have %d gets, %d sets", gets, len(sets))
	}
}
