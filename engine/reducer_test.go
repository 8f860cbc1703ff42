package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/openfun/richie-sub000/enrollment"
)

func TestReduce(t *testing.T) {
	user := enrollment.Known(*testUser)
	loaded := func(enrolled enrollment.Fact[bool]) State {
		s := InitialState(openCourseRun())
		s.Context.CurrentUser = user
		s.Context.IsEnrolled = enrolled
		return s
	}
	actionErr := &enrollment.ActionError{Action: "enroll", Err: errors.New("boom")}

	for _, tc := range []struct {
		name    string
		state   State
		step    enrollment.Step
		action  Action
		want    enrollment.Step
		wantErr error
	}{
		{"enroll", loaded(enrollment.Null[bool]()), enrollment.Idle, Enroll{}, enrollment.Enrolling, nil},
		{"unenroll", loaded(enrollment.Known(true)), enrollment.Enrolled, Unenroll{}, enrollment.Unenrolling, nil},
		{"failure", InitialState(openCourseRun()), enrollment.Loading, Failure{Err: enrollment.ErrFetchFailed}, enrollment.Failed, enrollment.ErrFetchFailed},
		{
			name:   "enrolled",
			state:  loaded(enrollment.Null[bool]()),
			step:   enrollment.Enrolling,
			action: UpdateContext{Update: enrollment.ContextUpdate{}.WithEnrolled(enrollment.Known(true))},
			want:   enrollment.Enrolled,
		},
		{
			name:    "enroll failed",
			state:   loaded(enrollment.Null[bool]()),
			step:    enrollment.Enrolling,
			action:  UpdateContext{Err: actionErr},
			want:    enrollment.EnrollmentFailed,
			wantErr: enrollment.ErrActionFailed,
		},
		{
			name:   "unenrolled",
			state:  loaded(enrollment.Known(true)),
			step:   enrollment.Unenrolling,
			action: UpdateContext{Update: enrollment.ContextUpdate{}.WithEnrolled(enrollment.Known(false))},
			want:   enrollment.Idle,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReducer(true, nil)
			tc.state.Step = tc.step
			s := r.Reduce(context.Background(), tc.state, tc.action)
			if have, want := s.Step, tc.want; have != want {
				t.Errorf("step: have %v, want %v", have, want)
			}
			if tc.wantErr != nil && !errors.Is(s.Err, tc.wantErr) {
				t.Errorf("error: have %v, want %v", s.Err, tc.wantErr)
			}
			if tc.wantErr == nil && s.Err != nil {
				t.Errorf("error: have %v, want nil", s.Err)
			}
		})
	}
}

func TestReduceEnrollKeepsContext(t *testing.T) {
	s := InitialState(openCourseRun())
	s.Context.CurrentUser = enrollment.Known(*testUser)
	s.Context.IsEnrolled = enrollment.Known(false)
	s.Step = enrollment.Idle
	next := NewReducer(true, nil).Reduce(context.Background(), s, Enroll{})
	if !reflect.DeepEqual(next.Context, s.Context) {
		t.Errorf("context: have %+v, want %+v", next.Context, s.Context)
	}
}

func TestReduceUnenrollRefused(t *testing.T) {
	errs := new(errorRecorder)
	s := InitialState(openCourseRun())
	s.Step = enrollment.Enrolled
	next := NewReducer(false, errs).Reduce(context.Background(), s, Unenroll{})
	if !reflect.DeepEqual(next, s) {
		t.Errorf("state changed: have %+v, want %+v", next, s)
	}
	if have := errs.errors(); len(have) != 1 || !errors.Is(have[0], enrollment.ErrUnenrollUnsupported) {
		t.Errorf("reported errors: have %v", have)
	}
}

func TestReduceUpdateContextIdempotent(t *testing.T) {
	r := NewReducer(true, nil)
	update := UpdateContext{Update: enrollment.ContextUpdate{}.
		WithUser(enrollment.Known(*testUser)).
		WithEnrolled(enrollment.Known(true))}
	once := r.Reduce(context.Background(), InitialState(openCourseRun()), update)
	twice := r.Reduce(context.Background(), once, update)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("have %+v, want %+v", twice, once)
	}
	if once.Step != enrollment.Enrolled {
		t.Errorf("step: have %v, want %v", once.Step, enrollment.Enrolled)
	}
}

func TestActionName(t *testing.T) {
	for _, tc := range []struct {
		action Action
		want   string
	}{
		{Enroll{}, "enroll"},
		{Unenroll{}, "unenroll"},
		{UpdateContext{}, "update_context"},
		{Failure{}, "failure"},
		{nil, ""},
	} {
		if have := ActionName(tc.action); have != tc.want {
			t.Errorf("have %q, want %q", have, tc.want)
		}
	}
}
