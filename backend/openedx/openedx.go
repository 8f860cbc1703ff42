// Package openedx implements the enrollment capabilities of two generations
// of the Open edX enrollment API: Hawthorn and the older Dogwood.
package openedx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/openfun/richie-sub000/backend/client"
	"github.com/openfun/richie-sub000/enrollment"
)

// DefaultCourseRegexp extracts the course ID from an Open edX resource link.
const DefaultCourseRegexp = `^.*/courses/(?P<course_id>.*)/course/?$`

const enrollmentPath = "/api/enrollment/v1/enrollment"

type config struct {
	courseRE   string
	clientOpts []client.Option
}

// Option configures an Open edX backend.
type Option func(*config)

// WithCourseRegexp overrides DefaultCourseRegexp.
// The regexp must have a "course_id" group.
func WithCourseRegexp(re string) Option {
	return func(c *config) {
		if re != "" {
			c.courseRE = re
		}
	}
}

// WithClientOptions configures the underlying HTTP client.
func WithClientOptions(opts ...client.Option) Option {
	return func(c *config) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

type api struct {
	client   *client.Client
	courseRE *regexp.Regexp
}

func newAPI(name, baseURL string, opts []Option) (*api, error) {
	cfg := &config{courseRE: DefaultCourseRegexp}
	for _, opt := range opts {
		opt(cfg)
	}
	re, err := regexp.Compile(cfg.courseRE)
	if err != nil {
		return nil, fmt.Errorf("compiling course regexp: %w", err)
	}
	c, err := client.New(name, baseURL, cfg.clientOpts...)
	if err != nil {
		return nil, err
	}
	return &api{client: c, courseRE: re}, nil
}

func (a *api) courseID(resourceLink string) (string, error) {
	return client.ExtractID(a.courseRE, "course_id", resourceLink)
}

type courseDetails struct {
	CourseID string `json:"course_id"`
}

type enrollmentRecord struct {
	User          string         `json:"user,omitempty"`
	Mode          string         `json:"mode,omitempty"`
	IsActive      *bool          `json:"is_active,omitempty"`
	CourseDetails *courseDetails `json:"course_details,omitempty"`
}

// get retrieves and converts an enrollment at path.
// Open edX enrollments have no identifier of their own: the record ID
// is the "username,course_id" pair the API itself uses.
func (a *api) get(ctx context.Context, path string, user *enrollment.User, courseID string) (*enrollment.Record, error) {
	var raw json.RawMessage
	found, err := a.client.Do(ctx, http.MethodGet, path, user, nil, &raw)
	if client.IsStatus(err, http.StatusNotFound) {
		// some LMS versions answer 404 for unknown enrollments
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	r := new(enrollmentRecord)
	if err = json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("unmarshal enrollment: %w", err)
	}
	rec := &enrollment.Record{
		ID:          user.Username + "," + courseID,
		IsActive:    r.IsActive != nil && *r.IsActive,
		CourseRunID: courseID,
		Raw:         raw,
	}
	return rec, nil
}

// post sends an enrollment request and returns the resulting active flag.
func (a *api) post(ctx context.Context, user *enrollment.User, req *enrollmentRecord, isActive bool) (bool, error) {
	resp := new(enrollmentRecord)
	found, err := a.client.Do(ctx, http.MethodPost, enrollmentPath, user, req, resp)
	if err != nil {
		return false, err
	}
	if !found || resp.IsActive == nil {
		return isActive, nil
	}
	return *resp.IsActive, nil
}

// Hawthorn drives the Open edX Hawthorn (and later) enrollment API.
type Hawthorn struct {
	*api
}

// NewHawthorn creates a new Hawthorn backend rooted at baseURL.
func NewHawthorn(baseURL string, opts ...Option) (*Hawthorn, error) {
	a, err := newAPI("openedx-hawthorn", baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &Hawthorn{api: a}, nil
}

// Get retrieves the enrollment of user for the course run.
func (h *Hawthorn) Get(ctx context.Context, resourceLink string, user *enrollment.User) (*enrollment.Record, error) {
	if user == nil {
		return nil, enrollment.ErrMissingUser
	}
	courseID, err := h.courseID(resourceLink)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("%s/%s,%s", enrollmentPath, url.PathEscape(user.Username), url.PathEscape(courseID))
	return h.get(ctx, path, user, courseID)
}

// Set enrolls or unenrolls user. The API upserts so existing is not needed.
func (h *Hawthorn) Set(ctx context.Context, resourceLink string, user *enrollment.User, _ *enrollment.Record, isActive bool) (bool, error) {
	if user == nil {
		return false, enrollment.ErrMissingUser
	}
	courseID, err := h.courseID(resourceLink)
	if err != nil {
		return false, err
	}
	return h.post(ctx, user, &enrollmentRecord{
		User:          user.Username,
		IsActive:      &isActive,
		CourseDetails: &courseDetails{CourseID: courseID},
	}, isActive)
}

// IsEnrolled returns the active flag of rec.
func (h *Hawthorn) IsEnrolled(rec *enrollment.Record) enrollment.Fact[bool] {
	return enrollment.IsActive(rec)
}

// CanUnenroll returns true.
func (h *Hawthorn) CanUnenroll() bool {
	return true
}

// Dogwood drives the older Open edX Dogwood enrollment API.
// That API identifies the learner from the session and cannot
// deactivate enrollments.
type Dogwood struct {
	*api
}

// NewDogwood creates a new Dogwood backend rooted at baseURL.
func NewDogwood(baseURL string, opts ...Option) (*Dogwood, error) {
	a, err := newAPI("openedx-dogwood", baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &Dogwood{api: a}, nil
}

// Get retrieves the enrollment of the session user for the course run.
func (d *Dogwood) Get(ctx context.Context, resourceLink string, user *enrollment.User) (*enrollment.Record, error) {
	if user == nil {
		return nil, enrollment.ErrMissingUser
	}
	courseID, err := d.courseID(resourceLink)
	if err != nil {
		return nil, err
	}
	return d.get(ctx, enrollmentPath+"/"+url.PathEscape(courseID), user, courseID)
}

// Set enrolls the session user. Unenrolling returns ErrUnenrollUnsupported.
func (d *Dogwood) Set(ctx context.Context, resourceLink string, user *enrollment.User, _ *enrollment.Record, isActive bool) (bool, error) {
	if !isActive {
		return false, enrollment.ErrUnenrollUnsupported
	}
	if user == nil {
		return false, enrollment.ErrMissingUser
	}
	courseID, err := d.courseID(resourceLink)
	if err != nil {
		return false, err
	}
	return d.post(ctx, user, &enrollmentRecord{
		CourseDetails: &courseDetails{CourseID: courseID},
	}, true)
}

// IsEnrolled returns the active flag of rec.
func (d *Dogwood) IsEnrolled(rec *enrollment.Record) enrollment.Fact[bool] {
	return enrollment.IsActive(rec)
}

// CanUnenroll returns false.
func (d *Dogwood) CanUnenroll() bool {
	return false
}
