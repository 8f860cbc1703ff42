// Package backend resolves which remote backend owns a course run and
// builds the configured backend capabilities.
package backend

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/openfun/richie-sub000/enrollment"
)

var (
	ErrEmptyDescriptor = errors.New("empty backend descriptor")
	ErrMissingName     = errors.New("missing backend name")
	ErrMissingMatch    = errors.New("missing backend selector or prefix")
	ErrMissingCap      = errors.New("missing backend capability")
)

// Descriptor associates a backend capability with the resource links it claims.
type Descriptor struct {
	Name   string
	Family string

	// Selector claims the resource links it matches.
	// If nil, Prefix is used instead.
	Selector *regexp.Regexp
	Prefix   string

	Capability enrollment.Capability
}

// Validate checks d for missing values.
func (d *Descriptor) Validate() error {
	if d == nil {
		return ErrEmptyDescriptor
	}
	if d.Name == "" {
		return ErrMissingName
	}
	if d.Selector == nil && d.Prefix == "" {
		return ErrMissingMatch
	}
	if d.Capability == nil {
		return ErrMissingCap
	}
	return nil
}

// Match reports whether d claims resourceLink.
func (d *Descriptor) Match(resourceLink string) bool {
	if d.Selector != nil {
		return d.Selector.MatchString(resourceLink)
	}
	return strings.HasPrefix(resourceLink, d.Prefix)
}

// Resolver finds the backend of a resource link among an ordered list of descriptors.
type Resolver struct {
	descriptors []*Descriptor
}

// NewResolver creates a resolver over descriptors in order.
func NewResolver(descriptors ...*Descriptor) (*Resolver, error) {
	seen := make(map[string]struct{})
	for i, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("backend %d: %w", i, err)
		}
		if _, ok := seen[d.Name]; ok {
			return nil, fmt.Errorf("duplicate backend name: %s", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return &Resolver{descriptors: descriptors}, nil
}

// Resolve returns the first descriptor that claims resourceLink.
// When several descriptors match, the first one in configuration
// order wins. If none match the course run has no enrollment feature
// and callers should fall back to a plain link.
func (r *Resolver) Resolve(resourceLink string) (*Descriptor, bool) {
	if resourceLink == "" {
		return nil, false
	}
	for _, d := range r.descriptors {
		if d.Match(resourceLink) {
			return d, true
		}
	}
	return nil, false
}

// Descriptors returns the descriptors in resolution order.
func (r *Resolver) Descriptors() []*Descriptor {
	return append([]*Descriptor(nil), r.descriptors...)
}
