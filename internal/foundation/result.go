// Package foundation provides generic utilities for type-safe operations.
package foundation

import "fmt"

// Result holds either a value of type T or an error of type E.
// Stores return it instead of (T, error) so callers branch explicitly.
type Result[T any, E error] struct {
	value T
	err   E
	isOk  bool
}

// Ok wraps a successful value.
func Ok[T any, E error](value T) Result[T, E] {
	return Result[T, E]{value: value, isOk: true}
}

// Err wraps a failure.
func Err[T any, E error](err E) Result[T, E] {
	return Result[T, E]{err: err}
}

// Done is the successful unit result used by write operations.
func Done() Result[struct{}, error] {
	return Ok[struct{}, error](struct{}{})
}

// Fail is the failed unit result used by write operations.
func Fail(err error) Result[struct{}, error] {
	return Err[struct{}, error](err)
}

func (r Result[T, E]) IsOk() bool  { return r.isOk }
func (r Result[T, E]) IsErr() bool { return !r.isOk }

// Unwrap returns the value and panics on an error result.
func (r Result[T, E]) Unwrap() T {
	if !r.isOk {
		panic(fmt.Sprintf("called Unwrap on Err result: %v", r.err))
	}
	return r.value
}

// UnwrapOr returns the value, or fallback on an error result.
func (r Result[T, E]) UnwrapOr(fallback T) T {
	if r.isOk {
		return r.value
	}
	return fallback
}

// UnwrapErr returns the error and panics on an ok result.
func (r Result[T, E]) UnwrapErr() E {
	if r.isOk {
		panic("called UnwrapErr on Ok result")
	}
	return r.err
}

// ToTuple converts back to the (value, error) pair.
func (r Result[T, E]) ToTuple() (T, E) {
	if r.isOk {
		var zeroErr E
		return r.value, zeroErr
	}
	var zeroVal T
	return zeroVal, r.err
}
