// Package patch provides a tri-state optional field for partial updates.
//
// A Field distinguishes a JSON key that is absent, present with null, and
// present with a value. Use it in request bodies where null clears a column.
package patch

import (
	"bytes"
	"encoding/json"
)

// Field is an optional value in a partial update payload.
type Field[T any] struct {
	value T
	set   bool
	null  bool
}

// Value returns a Field set to v.
func Value[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Null returns a Field explicitly set to null.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// IsSet reports whether the field was present in the payload.
func (f Field[T]) IsSet() bool { return f.set }

// IsNull reports whether the field was present and null.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Get returns the value and whether a non-null value is present.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set && !f.null
}

// Ptr returns nil for absent or null fields and a pointer to the value otherwise.
func (f Field[T]) Ptr() *T {
	if !f.set || f.null {
		return nil
	}
	v := f.value
	return &v
}

// UnmarshalJSON implements [json.Unmarshaler].
// It is only invoked when the key is present.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.null = true
		var zero T
		f.value = zero
		return nil
	}

	f.null = false
	return json.Unmarshal(data, &f.value)
}

// MarshalJSON implements [json.Marshaler].
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
