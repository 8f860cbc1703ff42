package enrollment

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrUnresolvedFact is returned when encoding an unresolved fact on its own.
var ErrUnresolvedFact = errors.New("unresolved fact has no JSON encoding")

// Fact is a value that may not be resolved yet.
// The zero value is unresolved.
type Fact[T any] struct {
	resolved bool
	value    *T
}

// Unresolved returns a fact that is not known yet.
func Unresolved[T any]() Fact[T] {
	return Fact[T]{}
}

// Null returns a fact resolved as absent.
func Null[T any]() Fact[T] {
	return Fact[T]{resolved: true}
}

// Known returns a fact resolved to v.
func Known[T any](v T) Fact[T] {
	return Fact[T]{resolved: true, value: &v}
}

// FactOf returns Null when v is nil and a known copy of *v otherwise.
func FactOf[T any](v *T) Fact[T] {
	if v == nil {
		return Null[T]()
	}
	return Known(*v)
}

// Resolved reports whether the fact has been resolved (null or known).
func (f Fact[T]) Resolved() bool {
	return f.resolved
}

// Null reports whether the fact is resolved as absent.
func (f Fact[T]) Null() bool {
	return f.resolved && f.value == nil
}

// Get returns the value and true if the fact is known.
func (f Fact[T]) Get() (v T, ok bool) {
	if f.value == nil {
		return
	}
	return *f.value, true
}

// IsZero reports whether the fact is unresolved.
// Struct fields tagged omitzero skip unresolved facts when encoding.
func (f Fact[T]) IsZero() bool {
	return !f.resolved
}

func (f Fact[T]) String() string {
	switch {
	case !f.resolved:
		return "unresolved"
	case f.value == nil:
		return "null"
	}
	b, err := json.Marshal(*f.value)
	if err != nil {
		return "known"
	}
	return string(b)
}

// MarshalJSON encodes a null fact as null and a known fact as its value.
// An unresolved fact has no encoding: fields holding one are expected to be
// tagged omitzero so that an absent field decodes back to unresolved.
func (f Fact[T]) MarshalJSON() ([]byte, error) {
	if !f.resolved {
		return nil, ErrUnresolvedFact
	}
	if f.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*f.value)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (f *Fact[T]) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Known(v)
	return nil
}

// True reports whether a boolean fact is known to be true.
// Unresolved, null and false facts are all falsy.
func True(f Fact[bool]) bool {
	v, ok := f.Get()
	return ok && v
}
