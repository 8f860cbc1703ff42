package backend

import (
	"errors"
	"regexp"
	"testing"

	"github.com/openfun/richie-sub000/backend/dummy"
	"github.com/openfun/richie-sub000/backend/dummy/storage/inmem"
)

func TestResolve(t *testing.T) {
	capability := dummy.New(inmem.New())
	r, err := NewResolver(
		&Descriptor{Name: "joanie", Selector: regexp.MustCompile(`^https://joanie\.test/.*/course-runs/`), Capability: capability},
		&Descriptor{Name: "any-joanie", Prefix: "https://joanie.test/", Capability: capability},
		&Descriptor{Name: "lms", Prefix: "https://lms.test/", Capability: capability},
	)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		link string
		want string
	}{
		{"https://joanie.test/api/course-runs/1/", "joanie"},
		{"https://joanie.test/products/1/", "any-joanie"},
		{"https://lms.test/courses/x/course", "lms"},
		{"https://other.test/", ""},
		{"", ""},
	} {
		d, ok := r.Resolve(tc.link)
		if tc.want == "" {
			if ok {
				t.Errorf("%q: have %s, want no backend", tc.link, d.Name)
			}
			continue
		}
		if !ok || d.Name != tc.want {
			t.Errorf("%q: have %v, want %s", tc.link, d, tc.want)
		}
	}
	if have := len(r.Descriptors()); have != 3 {
		t.Errorf("descriptors: have %d, want 3", have)
	}
}

func TestNewResolverInvalid(t *testing.T) {
	capability := dummy.New(inmem.New())
	for _, tc := range []struct {
		name string
		ds   []*Descriptor
		want error
	}{
		{"nil", []*Descriptor{nil}, ErrEmptyDescriptor},
		{"no name", []*Descriptor{{Prefix: "x", Capability: capability}}, ErrMissingName},
		{"no match", []*Descriptor{{Name: "x", Capability: capability}}, ErrMissingMatch},
		{"no capability", []*Descriptor{{Name: "x", Prefix: "x"}}, ErrMissingCap},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewResolver(tc.ds...); !errors.Is(err, tc.want) {
				t.Errorf("have %v, want %v", err, tc.want)
			}
		})
	}
	_, err := NewResolver(
		&Descriptor{Name: "x", Prefix: "a", Capability: capability},
		&Descriptor{Name: "x", Prefix: "b", Capability: capability},
	)
	if err == nil {
		t.Error("expected error for duplicate names")
	}
}
