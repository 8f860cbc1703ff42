package enrollment

// StepFromContext derives the step for c given the previous step.
// The rules are evaluated in order and the first match wins:
//
//  1. a closed course run is Closed, whatever else is known
//  2. Unenrolling with the learner still enrolled is UnenrollmentFailed
//  3. Enrolling with the learner not enrolled is EnrollmentFailed
//  4. an anonymous user is Anonymous
//  5. any unresolved fact (or a missing course run) is Loading
//  6. an enrolled learner is Enrolled
//  7. a learner known not to be enrolled is Idle
//
// If no rule matches an *ImpossibleStateError is returned along with
// the previous step.
func StepFromContext(c Context, previous Step) (Step, error) {
	switch {
	case c.CourseRun != nil && c.CourseRun.Priority().Closed():
		return Closed, nil
	case previous == Unenrolling && True(c.IsEnrolled):
		return UnenrollmentFailed, nil
	case previous == Enrolling && !True(c.IsEnrolled):
		return EnrollmentFailed, nil
	case c.CurrentUser.Null():
		return Anonymous, nil
	case !c.CurrentUser.Resolved() || c.CourseRun == nil || !c.IsEnrolled.Resolved():
		return Loading, nil
	case True(c.IsEnrolled):
		return Enrolled, nil
	case c.IsEnrolled.Resolved():
		return Idle, nil
	}
	return previous, &ImpossibleStateError{Previous: previous, Context: c}
}
