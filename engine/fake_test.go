package engine

import (
	"context"
	"sync"

	"github.com/openfun/richie-sub000/enrollment"
)

// fakeCapability is an in-memory capability that records its calls.
type fakeCapability struct {
	mu sync.Mutex

	rec         *enrollment.Record
	getErr      error
	setErr      error
	canUnenroll bool

	// block, if set, makes Set wait for it or for ctx to be done.
	block chan struct{}

	// started, if set, receives once per Set call.
	started chan struct{}

	gets int
	sets []bool
}

func newFakeCapability(rec *enrollment.Record) *fakeCapability {
	return &fakeCapability{rec: rec, canUnenroll: true}
}

func (f *fakeCapability) Get(_ context.Context, _ string, user *enrollment.User) (*enrollment.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user == nil {
		return nil, enrollment.ErrMissingUser
	}
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.rec == nil {
		return nil, nil
	}
	rec := *f.rec
	return &rec, nil
}

func (f *fakeCapability) Set(ctx context.Context, _ string, user *enrollment.User, _ *enrollment.Record, isActive bool) (bool, error) {
	f.mu.Lock()
	f.sets = append(f.sets, isActive)
	block, started := f.block, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if user == nil {
		return false, enrollment.ErrMissingUser
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	f.rec = &enrollment.Record{ID: "rec-1", IsActive: isActive}
	return isActive, nil
}

func (f *fakeCapability) IsEnrolled(rec *enrollment.Record) enrollment.Fact[bool] {
	return enrollment.IsActive(rec)
}

func (f *fakeCapability) CanUnenroll() bool {
	return f.canUnenroll
}

func (f *fakeCapability) calls() (gets int, sets []bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, append([]bool(nil), f.sets...)
}

// errorRecorder is an error handler that keeps what it is given.
type errorRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *errorRecorder) HandleError(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *errorRecorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

var testUser = &enrollment.User{Username: "learner", AccessToken: "token"}

func openCourseRun() enrollment.CourseRun {
	return enrollment.CourseRun{
		ID:           "42",
		ResourceLink: "http://lms.test/course-runs/42/",
		State:        enrollment.CourseRunState{Priority: enrollment.OngoingOpen, CallToAction: "enroll now"},
	}
}
