package engine

import (
	"errors"
	"testing"

	"github.com/openfun/richie-sub000/enrollment"
)

func TestRenderEveryStep(t *testing.T) {
	want := map[enrollment.Step]Kind{
		enrollment.Loading:            KindSpinner,
		enrollment.Anonymous:          KindLogin,
		enrollment.Closed:             KindClosed,
		enrollment.Idle:               KindAction,
		enrollment.Enrolling:          KindBusy,
		enrollment.Enrolled:           KindAction,
		enrollment.EnrollmentFailed:   KindAction,
		enrollment.Unenrolling:        KindBusy,
		enrollment.UnenrollmentFailed: KindAction,
		enrollment.Failed:             KindFetchFailed,
	}
	for _, step := range enrollment.Steps() {
		s := InitialState(openCourseRun())
		s.Step = step
		view, err := Render(s, true)
		if err != nil {
			t.Errorf("%v: %v", step, err)
			continue
		}
		kind, ok := want[step]
		if !ok {
			t.Errorf("%v: no expected kind", step)
			continue
		}
		if view.Kind != kind {
			t.Errorf("%v: have %v, want %v", step, view.Kind, kind)
		}
	}
}

func TestRenderInFlightDisabled(t *testing.T) {
	for _, step := range []enrollment.Step{enrollment.Enrolling, enrollment.Unenrolling} {
		s := InitialState(openCourseRun())
		s.Step = step
		view, err := Render(s, true)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range []Control{ControlEnroll, ControlUnenroll, ControlGoToCourse, ControlLogin} {
			if view.Offers(c) {
				t.Errorf("%v: %v offered", step, c)
			}
		}
	}
}

func TestRenderImpossible(t *testing.T) {
	s := InitialState(openCourseRun())
	s.Impossible = true
	if _, err := Render(s, true); !errors.Is(err, enrollment.ErrImpossibleState) {
		t.Errorf("have %v, want %v", err, enrollment.ErrImpossibleState)
	}
	s = InitialState(openCourseRun())
	s.Step = enrollment.Step(200)
	if _, err := Render(s, true); !errors.Is(err, enrollment.ErrImpossibleState) {
		t.Errorf("have %v, want %v", err, enrollment.ErrImpossibleState)
	}
}

func TestRenderUnenrollControl(t *testing.T) {
	s := InitialState(openCourseRun())
	s.Step = enrollment.Enrolled
	for _, canUnenroll := range []bool{true, false} {
		view, err := Render(s, canUnenroll)
		if err != nil {
			t.Fatal(err)
		}
		if have := view.Offers(ControlUnenroll); have != canUnenroll {
			t.Errorf("unenroll offered: have %v, want %v", have, canUnenroll)
		}
		if !view.Offers(ControlGoToCourse) {
			t.Error("go to course not offered")
		}
	}
}

func TestRenderActionErrorMessage(t *testing.T) {
	s := InitialState(openCourseRun())
	s.Step = enrollment.EnrollmentFailed
	s.Err = &enrollment.ActionError{
		Action: "enroll",
		Err:    &enrollment.HTTPError{StatusCode: 400, Message: "course is full"},
	}
	view, err := Render(s, true)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := view.Error, "course is full"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}
