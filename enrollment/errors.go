package enrollment

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrFetchFailed matches failures of the initial enrollment fetch.
	ErrFetchFailed = errors.New("could not load enrollment info")

	// ErrActionFailed matches failures of an enroll or unenroll attempt.
	ErrActionFailed = errors.New("enrollment action failed")

	// ErrImpossibleState matches derivations that matched no rule.
	ErrImpossibleState = errors.New("impossible enrollment state")

	// ErrUnenrollUnsupported is returned when a backend cannot unenroll learners.
	ErrUnenrollUnsupported = errors.New("backend does not support unenrollment")

	// ErrNoBackend indicates no backend claims a resource link.
	ErrNoBackend = errors.New("no backend for resource link")

	// ErrMissingUser is returned by capabilities called without a user.
	ErrMissingUser = errors.New("missing user")

	// ErrDisposed is returned when acting on a closed engine.
	ErrDisposed = errors.New("enrollment engine disposed")
)

// NetworkError is a transport failure talking to a backend.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response from a backend.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int

	// Message is the human readable reason given by the backend, if any.
	Message string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("http error: %s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// FetchError wraps a failure of the initial user or record fetch.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v: %v", ErrFetchFailed, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// ActionError wraps a failed enroll or unenroll attempt.
// The same action may be dispatched again to retry.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Action, ErrActionFailed, e.Err)
}

func (e *ActionError) Unwrap() []error {
	return []error{ErrActionFailed, e.Err}
}

// ImpossibleStateError reports a context for which no derivation rule matched.
// This is a logic bug: it is reported and nothing is rendered.
type ImpossibleStateError struct {
	Previous Step
	Context  Context
}

func (e *ImpossibleStateError) Error() string {
	return fmt.Sprintf(
		"%v: previous=%s user=%s enrolled=%s course_run=%t",
		ErrImpossibleState,
		e.Previous,
		e.Context.CurrentUser,
		e.Context.IsEnrolled,
		e.Context.CourseRun != nil,
	)
}

func (e *ImpossibleStateError) Unwrap() error {
	return ErrImpossibleState
}

// Message returns the text to show a learner for err.
// Backend provided messages are preferred over generic ones.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	switch {
	case errors.Is(err, ErrFetchFailed):
		return "Could not load enrollment information."
	case errors.Is(err, ErrUnenrollUnsupported):
		return "Unenrollment is not available for this course run."
	case errors.Is(err, ErrActionFailed):
		var actionErr *ActionError
		if errors.As(err, &actionErr) && actionErr.Action == "unenroll" {
			return "Your unenrollment request failed."
		}
		return "Your enrollment request failed."
	}
	return "An unexpected error occurred."
}
