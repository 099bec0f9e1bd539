package domain

import (
	"bytes"
	"encoding/json"
)

// Optional is a three-state field used by partial updates: absent, explicit null, or a value.
// The zero value is absent.
type Optional[T any] struct {
	set   bool
	null  bool
	value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{set: true, value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

// FromPtr maps nil to absent.
func FromPtr[T any](v *T) Optional[T] {
	if v == nil {
		return Optional[T]{}
	}
	return Some(*v)
}

func (o Optional[T]) IsSet() bool  { return o.set }
func (o Optional[T]) IsNull() bool { return o.set && o.null }

// IsZero reports absence so `omitzero` drops the field when encoding.
func (o Optional[T]) IsZero() bool { return !o.set }

// Get returns the value and true only when a non-null value is present.
func (o Optional[T]) Get() (T, bool) {
	if !o.set || o.null {
		var zero T
		return zero, false
	}
	return o.value, true
}

// Ptr returns nil for absent or null.
func (o Optional[T]) Ptr() *T {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	return &v
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.null = true
		var zero T
		o.value = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// putOptional copies a set field into a wire map, keeping explicit nulls.
func putOptional[T any](m map[string]any, key string, o Optional[T]) {
	if !o.set {
		return
	}
	if o.null {
		m[key] = nil
		return
	}
	m[key] = o.value
}
