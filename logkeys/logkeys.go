// Package logkeys defines some static logging keys for consistent structured logging output.
// Mostly exists as a mental aid when drafting log messages.
package logkeys

const (
	Message = "msg"
	Error   = "err"

	// identifier of a course run as given by the syllabus
	CourseRun = "course_run"

	// the locator of a course run on its remote backend
	ResourceLink = "resource_link"

	// the configured name of a backend
	Backend = "backend"

	Username = "username"

	Step         = "step"
	PreviousStep = "step_previous"
	Action       = "action"

	// a context-dependent numerical count/length of something
	GenericCount = "count"
)
