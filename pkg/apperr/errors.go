// Package apperr defines the error kinds the service layer surfaces to
// callers. Handlers map them onto transport status codes; everything not
// matched here is treated as internal.
package apperr

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func NotFound(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConsistencyError wraps a failure of a multi-step transactional operation.
// By the time it is returned the transaction has been rolled back.
type ConsistencyError struct {
	Op  string
	Err error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: rolled back: %v", e.Op, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

func Consistency(op string, err error) *ConsistencyError {
	return &ConsistencyError{Op: op, Err: err}
}

// DeductionError carries every failure reason collected during an
// auto-deduction pass, not just the first one.
type DeductionError struct {
	Reasons []string
}

func (e *DeductionError) Error() string {
	return "material deduction failed: " + strings.Join(e.Reasons, "; ")
}
