package dayli

import "errors"

var (
	// ErrNotFound is returned when an object or record is not found
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller is authenticated but does not
	// own the object it is trying to mutate
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is returned when a per-owner operation ceiling is hit
	ErrRateLimited = errors.New("rate limited")
	// ErrNoBucket is returned when the target bucket does not exist
	ErrNoBucket = errors.New("bucket not found")
	// ErrUnreachable is returned when the object store cannot be reached
	ErrUnreachable = errors.New("store unreachable")
)
