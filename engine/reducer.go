package engine

import (
	"context"

	"github.com/openfun/richie-sub000/enrollment"
)

// Action is an input of the reducer.
// The set of actions is closed: Enroll, Unenroll, UpdateContext and Failure.
type Action interface {
	actionName() string
}

// Enroll marks an enrollment attempt as in flight.
type Enroll struct{}

// Unenroll marks an unenrollment attempt as in flight.
type Unenroll struct{}

// UpdateContext merges facts into the context and derives the next step.
// Err carries an action failure to show inline, if any.
type UpdateContext struct {
	Update enrollment.ContextUpdate
	Err    error
}

// Failure reports that the initial fetch failed.
type Failure struct {
	Err error
}

func (Enroll) actionName() string        { return "enroll" }
func (Unenroll) actionName() string      { return "unenroll" }
func (UpdateContext) actionName() string { return "update_context" }
func (Failure) actionName() string       { return "failure" }

// ActionName returns the name of a for logging.
func ActionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}

// State is the output of the reducer.
type State struct {
	Step    enrollment.Step    `json:"step"`
	Context enrollment.Context `json:"context"`

	// Err is the last fetch or action error.
	Err error `json:"-"`

	// Impossible is set when the last context update matched no
	// derivation rule. Nothing should be rendered.
	Impossible bool `json:"impossible,omitempty"`
}

// InitialState returns the state of a freshly mounted course run.
func InitialState(courseRun enrollment.CourseRun) State {
	return State{
		Step:    enrollment.Loading,
		Context: enrollment.Context{CourseRun: &courseRun},
	}
}

// Reducer applies actions to states.
type Reducer struct {
	canUnenroll bool
	handler     enrollment.ErrorHandler
}

// NewReducer creates a new reducer for a backend capability.
// Errors that are not part of the returned states are reported to handler.
func NewReducer(canUnenroll bool, handler enrollment.ErrorHandler) *Reducer {
	if handler == nil {
		handler = enrollment.NopErrorHandler
	}
	return &Reducer{canUnenroll: canUnenroll, handler: handler}
}

// Reduce returns the state that results from applying a to s.
// Context updates are the only way an in-flight step resolves.
func (r *Reducer) Reduce(ctx context.Context, s State, a Action) State {
	switch a := a.(type) {
	case Enroll:
		s.Step = enrollment.Enrolling
		s.Err = nil
		s.Impossible = false
	case Unenroll:
		if !r.canUnenroll {
			r.handler.HandleError(ctx, enrollment.ErrUnenrollUnsupported)
			return s
		}
		s.Step = enrollment.Unenrolling
		s.Err = nil
		s.Impossible = false
	case UpdateContext:
		s.Context = s.Context.Merge(a.Update)
		step, err := enrollment.StepFromContext(s.Context, s.Step)
		if err != nil {
			r.handler.HandleError(ctx, err)
			s.Impossible = true
			return s
		}
		s.Step = step
		s.Err = a.Err
		s.Impossible = false
	case Failure:
		s.Step = enrollment.Failed
		s.Err = a.Err
		s.Impossible = false
	}
	return s
}
