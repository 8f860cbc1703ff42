package enrollment

import (
	"encoding/json"
	"time"
)

// Priority classifies the enrollment eligibility of a course run.
// Lower values are "more open".
type Priority int

const (
	OngoingOpen Priority = iota
	FutureOpen
	ArchivedOpen
	FutureNotYetOpen
	FutureClosed
	OngoingClosed
	ArchivedClosed
	ToBeScheduled
)

var priorityNames = [...]string{
	OngoingOpen:      "ongoing_open",
	FutureOpen:       "future_open",
	ArchivedOpen:     "archived_open",
	FutureNotYetOpen: "future_not_yet_open",
	FutureClosed:     "future_closed",
	OngoingClosed:    "ongoing_closed",
	ArchivedClosed:   "archived_closed",
	ToBeScheduled:    "to_be_scheduled",
}

func (p Priority) String() string {
	if p < 0 || int(p) >= len(priorityNames) {
		return "unknown"
	}
	return priorityNames[p]
}

// Closed reports whether enrollment is no longer (or not yet) possible.
// Every priority above ArchivedOpen is considered closed.
func (p Priority) Closed() bool {
	return p > ArchivedOpen
}

// PriorityForString returns the priority named s and whether it exists.
func PriorityForString(s string) (Priority, bool) {
	for i, name := range priorityNames {
		if name == s {
			return Priority(i), true
		}
	}
	return 0, false
}

// CourseRunState is the computed state of a course run as shown in the syllabus.
type CourseRunState struct {
	Priority     Priority   `json:"priority"`
	CallToAction string     `json:"call_to_action,omitempty"`
	Text         string     `json:"text,omitempty"`
	Datetime     *time.Time `json:"datetime,omitempty"`
}

// CourseRun is a scheduled session of a course.
// Fields of the syllabus payload that are not modeled are ignored when decoding.
// Unset dates are omitted when encoding.
type CourseRun struct {
	ID           string         `json:"id"`
	ResourceLink string         `json:"resource_link"`
	Title        string         `json:"title,omitempty"`
	Start        *time.Time     `json:"start,omitempty"`
	End          *time.Time     `json:"end,omitempty"`
	State        CourseRunState `json:"state"`

	EnrollmentStart *time.Time `json:"enrollment_start,omitempty"`
	EnrollmentEnd   *time.Time `json:"enrollment_end,omitempty"`
	Languages       []string   `json:"languages,omitempty"`
	DashboardLink   string     `json:"dashboard_link,omitempty"`
}

// Priority returns the eligibility code of the course run.
func (cr *CourseRun) Priority() Priority {
	return cr.State.Priority
}

// User is an authenticated learner.
type User struct {
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`

	// AccessToken is forwarded to backends that authenticate API calls
	// with a bearer token. It is never serialized.
	AccessToken string `json:"-"`
}

// Record is a backend-native enrollment record.
type Record struct {
	ID          string `json:"id"`
	IsActive    bool   `json:"is_active"`
	CourseRunID string `json:"course_run_id,omitempty"`

	// Raw is the undecoded payload as returned by the backend.
	Raw json.RawMessage `json:"raw,omitempty"`
}
