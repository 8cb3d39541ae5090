package services

import (
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/sedar/pkg/formstate"
)

var (
	ErrCodeConflict = errors.New("code is already taken")
	ErrSubmitFailed = errors.New("backend rejected the submission")
	ErrNoLookup     = errors.New("field has no lookup list")
	ErrBadPatch     = errors.New("invalid patch document")
)

// ValidationError blocks a submit before any backend call.
type ValidationError struct {
	Result formstate.Result
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Result.Failed(), ", ")
}

// SubmitError classifies a backend rejection. Is matches Kind
// (ErrCodeConflict or ErrSubmitFailed); Unwrap exposes the backend error.
type SubmitError struct {
	Kind  error
	Cause error
}

func (e *SubmitError) Error() string {
	return e.Kind.Error() + ": " + e.Cause.Error()
}

func (e *SubmitError) Is(target error) bool {
	return target == e.Kind
}

func (e *SubmitError) Unwrap() error {
	return e.Cause
}
