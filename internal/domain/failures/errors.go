// Package failures defines the error kinds shared across the pipeline.
// Components wrap one of the sentinel kinds so callers can branch with
// errors.Is and render a typed result instead of surfacing raw errors.
package failures

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUpstream marks an unreachable or misbehaving AI provider.
	ErrUpstream = errors.New("upstream failure")
	// ErrStorage marks a persistence failure. Always non-fatal.
	ErrStorage = errors.New("storage failure")
	// ErrSecurityBlock marks a blocked visitor.
	ErrSecurityBlock = errors.New("access restricted")
)

// Error carries a failure kind plus the operation that produced it.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation wraps err as a validation failure.
func Validation(op string, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// Upstream wraps err as an upstream failure.
func Upstream(op string, err error) error {
	return &Error{Kind: ErrUpstream, Op: op, Err: err}
}

// Storage wraps err as a storage failure.
func Storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Op: op, Err: err}
}

// Blocked returns a security block failure.
func Blocked(op string) error {
	return &Error{Kind: ErrSecurityBlock, Op: op}
}

// KindOf reports which failure kind err carries, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrSecurityBlock, ErrValidation, ErrUpstream, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
