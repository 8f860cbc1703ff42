package enrollment

// Context is the only state of the enrollment engine.
// A Step is always reproducible from a Context and the previous Step.
type Context struct {
	CurrentUser Fact[User] `json:"current_user,omitzero"`
	CourseRun   *CourseRun `json:"course_run"`
	IsEnrolled  Fact[bool] `json:"is_enrolled,omitzero"`
}

// ContextUpdate is a partial Context.
// Nil fields are left untouched when merged.
type ContextUpdate struct {
	CurrentUser *Fact[User]
	CourseRun   *CourseRun
	IsEnrolled  *Fact[bool]
}

// Empty reports whether u does not change anything.
func (u ContextUpdate) Empty() bool {
	return u.CurrentUser == nil && u.CourseRun == nil && u.IsEnrolled == nil
}

// WithUser sets the current user fact of u.
func (u ContextUpdate) WithUser(f Fact[User]) ContextUpdate {
	u.CurrentUser = &f
	return u
}

// WithEnrolled sets the enrollment fact of u.
func (u ContextUpdate) WithEnrolled(f Fact[bool]) ContextUpdate {
	u.IsEnrolled = &f
	return u
}

// Merge returns a copy of c with the present fields of u applied.
func (c Context) Merge(u ContextUpdate) Context {
	if u.CurrentUser != nil {
		c.CurrentUser = *u.CurrentUser
	}
	if u.CourseRun != nil {
		cr := *u.CourseRun
		c.CourseRun = &cr
	}
	if u.IsEnrolled != nil {
		c.IsEnrolled = *u.IsEnrolled
	}
	return c
}
