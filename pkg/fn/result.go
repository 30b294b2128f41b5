// Package fn holds the small functional helpers the loaders and chains are
// composed from: a value-or-error Result and context-aware Stages.
package fn

import "fmt"

// Result carries either a value or the error that prevented it.
type Result[T any] struct {
	val T
	err error
}

// Ok wraps a value.
func Ok[T any](v T) Result[T] { return Result[T]{val: v} }

// Err wraps an error. A nil error still yields a failed Result.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = fmt.Errorf("fn: nil error")
	}
	return Result[T]{err: err}
}

// FromPair converts a (value, error) return into a Result.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// Error returns the failure, or nil.
func (r Result[T]) Error() error { return r.err }
