package models

// Field is one entry of a partial-update mask.
// The zero value means the field was not supplied.
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a Field marked as supplied with the given value.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// IsSet reports whether the field was supplied.
func (f Field[T]) IsSet() bool {
	return f.set
}

// Value returns the supplied value, or the zero value of T when unset.
func (f Field[T]) Value() T {
	return f.value
}

// Get returns the value and whether it was supplied.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}
