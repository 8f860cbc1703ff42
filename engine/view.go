package engine

import (
	"github.com/openfun/richie-sub000/enrollment"
)

// Kind is the kind of affordance a view shows.
type Kind string

const (
	KindSpinner     Kind = "spinner"
	KindLogin       Kind = "login"
	KindClosed      Kind = "closed"
	KindAction      Kind = "action"
	KindBusy        Kind = "busy"
	KindFetchFailed Kind = "fetch_failed"
)

// Control is an interactive element of a view.
type Control string

const (
	ControlLogin      Control = "login"
	ControlEnroll     Control = "enroll"
	ControlUnenroll   Control = "unenroll"
	ControlGoToCourse Control = "go_to_course"
)

// View is the affordance projection of a State.
type View struct {
	Kind     Kind            `json:"kind"`
	Step     enrollment.Step `json:"step"`
	Controls []Control       `json:"controls,omitempty"`

	// Disabled is set while an action is in flight.
	Disabled bool `json:"disabled,omitempty"`

	// Text is static help or the inline error message.
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`

	// CallToAction is the label of the course run state, if any.
	CallToAction string `json:"call_to_action,omitempty"`
}

// Offers reports whether v exposes an enabled c.
func (v *View) Offers(c Control) bool {
	if v == nil || v.Disabled {
		return false
	}
	for _, have := range v.Controls {
		if have == c {
			return true
		}
	}
	return false
}

// Render projects s into a view.
// Impossible states and unknown steps render nothing and return an
// *enrollment.ImpossibleStateError.
func Render(s State, canUnenroll bool) (*View, error) {
	if s.Impossible || !s.Step.Valid() {
		return nil, &enrollment.ImpossibleStateError{Previous: s.Step, Context: s.Context}
	}
	v := &View{Step: s.Step}
	if cr := s.Context.CourseRun; cr != nil {
		v.CallToAction = cr.State.CallToAction
	}
	switch s.Step {
	case enrollment.Loading:
		v.Kind = KindSpinner
	case enrollment.Anonymous:
		v.Kind = KindLogin
		v.Controls = []Control{ControlLogin}
	case enrollment.Closed:
		v.Kind = KindClosed
		if cr := s.Context.CourseRun; cr != nil {
			v.Text = cr.State.Text
		}
		if v.Text == "" {
			v.Text = "Enrollment in this course run is closed."
		}
	case enrollment.Idle:
		v.Kind = KindAction
		v.Controls = []Control{ControlEnroll}
	case enrollment.Enrolling:
		v.Kind = KindBusy
		v.Controls = []Control{ControlEnroll}
		v.Disabled = true
	case enrollment.Unenrolling:
		v.Kind = KindBusy
		v.Controls = []Control{ControlUnenroll}
		v.Disabled = true
	case enrollment.Enrolled:
		v.Kind = KindAction
		v.Controls = []Control{ControlGoToCourse}
		if canUnenroll {
			v.Controls = append(v.Controls, ControlUnenroll)
		}
	case enrollment.EnrollmentFailed:
		v.Kind = KindAction
		v.Controls = []Control{ControlEnroll}
		v.Error = failureMessage(s.Err, "enroll")
	case enrollment.UnenrollmentFailed:
		v.Kind = KindAction
		v.Controls = []Control{ControlGoToCourse}
		if canUnenroll {
			v.Controls = append(v.Controls, ControlUnenroll)
		}
		v.Error = failureMessage(s.Err, "unenroll")
	case enrollment.Failed:
		v.Kind = KindFetchFailed
		v.Error = enrollment.Message(s.Err)
		if v.Error == "" {
			v.Error = enrollment.Message(enrollment.ErrFetchFailed)
		}
	}
	return v, nil
}

// failureMessage returns the inline message of a failed action.
// The backend may answer without error and still not apply the change.
func failureMessage(err error, action string) string {
	if err != nil {
		return enrollment.Message(err)
	}
	return enrollment.Message(&enrollment.ActionError{Action: action})
}
