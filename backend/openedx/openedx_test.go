package openedx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/openfun/richie-sub000/enrollment"
)

const (
	courseID = "course-v1:edX+DemoX+Demo_Course"
	link     = "https://lms.test/courses/" + courseID + "/course"
)

// fakeLMS serves a single enrollment of user "learner".
type fakeLMS struct {
	mu       sync.Mutex
	active   *bool
	requests []string
}

func (f *fakeLMS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	switch {
	case r.Method == http.MethodGet && (r.URL.Path == enrollmentPath+"/learner,"+courseID || r.URL.Path == enrollmentPath+"/"+courseID):
		if f.active == nil {
			// the LMS answers an empty body for unknown enrollments
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"user":           "learner",
			"is_active":      *f.active,
			"course_details": map[string]any{"course_id": courseID},
		})
	case r.Method == http.MethodPost && r.URL.Path == enrollmentPath:
		var req enrollmentRecord
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CourseDetails == nil || req.CourseDetails.CourseID != courseID {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"bad course"}`))
			return
		}
		active := req.IsActive == nil || *req.IsActive
		f.active = &active
		json.NewEncoder(w).Encode(map[string]any{"user": "learner", "is_active": active})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeLMS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var user = &enrollment.User{Username: "learner"}

func TestHawthorn(t *testing.T) {
	fake := new(fakeLMS)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	h, err := NewHawthorn(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	rec, err := h.Get(ctx, link, user)
	if err != nil || rec != nil {
		t.Fatalf("get: have %+v %v", rec, err)
	}

	if active, err := h.Set(ctx, link, user, nil, true); err != nil || !active {
		t.Fatalf("enroll: have %v %v", active, err)
	}
	rec, err = h.Get(ctx, link, user)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || !rec.IsActive || rec.ID != "learner,"+courseID {
		t.Fatalf("record: have %+v", rec)
	}
	if !enrollment.True(h.IsEnrolled(rec)) {
		t.Error("expected enrolled fact")
	}

	if active, err := h.Set(ctx, link, user, rec, false); err != nil || active {
		t.Fatalf("unenroll: have %v %v", active, err)
	}
}

func TestDogwood(t *testing.T) {
	fake := new(fakeLMS)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	d, err := NewDogwood(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if d.CanUnenroll() {
		t.Error("dogwood cannot unenroll")
	}
	ctx := context.Background()

	if active, err := d.Set(ctx, link, user, nil, true); err != nil || !active {
		t.Fatalf("enroll: have %v %v", active, err)
	}
	rec, err := d.Get(ctx, link, user)
	if err != nil || rec == nil || !rec.IsActive {
		t.Fatalf("get: have %+v %v", rec, err)
	}

	before := fake.count()
	_, err = d.Set(ctx, link, user, rec, false)
	if !errors.Is(err, enrollment.ErrUnenrollUnsupported) {
		t.Errorf("unenroll: have %v, want %v", err, enrollment.ErrUnenrollUnsupported)
	}
	if have := fake.count(); have != before {
		t.Errorf("unenroll sent %d requests", have-before)
	}
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"enrollment not found"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h, err := NewHawthorn(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := h.Get(context.Background(), link, user)
	if err != nil || rec != nil {
		t.Errorf("have %+v %v, want nil nil", rec, err)
	}
	if !h.IsEnrolled(rec).Null() {
		t.Errorf("enrolled fact: have %v, want null", h.IsEnrolled(rec))
	}

	// other errors are not swallowed
	if _, err = h.Set(context.Background(), link, user, nil, true); err == nil {
		t.Error("expected error")
	}
}

func TestCourseRegexp(t *testing.T) {
	h, err := NewHawthorn("https://lms.test", WithCourseRegexp(`^.*/c/(?P<course_id>[^/]+)$`))
	if err != nil {
		t.Fatal(err)
	}
	id, err := h.courseID("https://lms.test/c/abc")
	if err != nil || id != "abc" {
		t.Errorf("have %q %v", id, err)
	}
	if _, err = h.courseID(link); err == nil {
		t.Error("expected error for default style link")
	}
}
