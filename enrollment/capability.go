package enrollment

import "context"

// Capability is the operation set required from a backend to drive the engine.
// One implementation exists per backend family.
type Capability interface {
	// Get retrieves the enrollment record of user for the course run
	// identified by resourceLink. A nil record with a nil error means
	// the user has no enrollment record. Transport failures return a
	// *NetworkError and non-2xx responses an *HTTPError.
	Get(ctx context.Context, resourceLink string, user *User) (*Record, error)

	// Set creates an enrollment record if existing is nil or else
	// updates its active flag. It returns the resulting active flag.
	Set(ctx context.Context, resourceLink string, user *User, existing *Record, isActive bool) (bool, error)

	// IsEnrolled projects rec into an enrollment fact.
	// A nil record is a null fact.
	IsEnrolled(rec *Record) Fact[bool]

	// CanUnenroll reports whether Set may be called with isActive false.
	CanUnenroll() bool
}

// IsActive is a helper for capabilities whose records carry the active flag as is.
func IsActive(rec *Record) Fact[bool] {
	if rec == nil {
		return Null[bool]()
	}
	return Known(rec.IsActive)
}
