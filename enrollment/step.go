package enrollment

import "fmt"

// Step is the discrete UI-facing state of the enrollment engine.
type Step uint8

const (
	Loading Step = iota
	Anonymous
	Closed
	Idle
	Enrolling
	Enrolled
	EnrollmentFailed
	Unenrolling
	UnenrollmentFailed
	Failed

	maxStep
)

var stepNames = [maxStep]string{
	Loading:            "loading",
	Anonymous:          "anonymous",
	Closed:             "closed",
	Idle:               "idle",
	Enrolling:          "enrolling",
	Enrolled:           "enrolled",
	EnrollmentFailed:   "enrollment_failed",
	Unenrolling:        "unenrolling",
	UnenrollmentFailed: "unenrollment_failed",
	Failed:             "failed",
}

// Steps returns every valid step in declaration order.
func Steps() []Step {
	steps := make([]Step, 0, maxStep)
	for s := Loading; s < maxStep; s++ {
		steps = append(steps, s)
	}
	return steps
}

// Valid reports whether s is one of the declared steps.
func (s Step) Valid() bool {
	return s < maxStep
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("step(%d)", uint8(s))
	}
	return stepNames[s]
}

// InFlight reports whether an enroll or unenroll attempt is pending.
func (s Step) InFlight() bool {
	return s == Enrolling || s == Unenrolling
}

// MarshalText encodes s as its name.
func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid step: %d", uint8(s))
	}
	return []byte(stepNames[s]), nil
}

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(text []byte) error {
	for i, name := range stepNames {
		if name == string(text) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown step: %q", text)
}
