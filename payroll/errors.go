/*
errors.go - Error taxonomy of the payroll pipeline

ERROR CATEGORIES:
  1. Missing configuration - no salary window, deduction policy, brackets...
  2. Blocked - a pending leave/overtime request moves the attendance base
  3. Immutable state - the period is APPROVED and cannot be recomputed
  4. Batch partial failure - some employees of a batch failed

  None of them is retried by the pipeline. They are returned with the
  employee code attached so a batch can report them per employee.

USAGE:
  if errors.Is(err, payroll.ErrImmutableState) { ... }

  var missing *payroll.MissingConfigurationError
  if errors.As(err, &missing) { log(missing.What) }
*/
package payroll

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrMissingConfiguration = errors.New("missing payroll configuration")

	ErrBlockedByPendingRequest = errors.New("blocked by pending request")

	// ErrImmutableState is returned when a write targets an APPROVED statement.
	ErrImmutableState = errors.New("pay statement is approved and immutable")

	ErrBatchPartialFailure = errors.New("batch completed with failures")

	ErrStatementNotFound = errors.New("pay statement not found")

	ErrEmployeeNotFound = errors.New("employee not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type MissingConfigurationError struct {
	EmployeeCode EmployeeCode
	What         string // e.g. "salary information for 2025-03"
}

func (e *MissingConfigurationError) Error() string {
	if e.EmployeeCode == "" {
		return fmt.Sprintf("missing configuration: %s", e.What)
	}
	return fmt.Sprintf("missing configuration for %s: %s", e.EmployeeCode, e.What)
}

func (e *MissingConfigurationError) Unwrap() error {
	return ErrMissingConfiguration
}

type BlockedError struct {
	EmployeeCode EmployeeCode
	Month        generic.Month
	Kind         RequestKind
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s has a pending %s request in %s", e.EmployeeCode, e.Kind, e.Month)
}

func (e *BlockedError) Unwrap() error {
	return ErrBlockedByPendingRequest
}

type ImmutableStateError struct {
	EmployeeCode EmployeeCode
	Month        generic.Month
}

func (e *ImmutableStateError) Error() string {
	return fmt.Sprintf("pay statement of %s for %s is approved and cannot be recomputed",
		e.EmployeeCode, e.Month)
}

func (e *ImmutableStateError) Unwrap() error {
	return ErrImmutableState
}

// BatchError lists every failed employee of a batch run.
type BatchError struct {
	Total    int
	Failures []Failure
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Message()
	}
	return fmt.Sprintf("%d of %d employees failed: %s",
		len(e.Failures), e.Total, strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() error {
	return ErrBatchPartialFailure
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by the data being
// calculated rather than by the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingConfiguration) ||
		errors.Is(err, ErrBlockedByPendingRequest) ||
		errors.Is(err, ErrImmutableState)
}

// IsNotFound returns true if a referenced record doesn't exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStatementNotFound) ||
		errors.Is(err, ErrEmployeeNotFound)
}

func missing(code EmployeeCode, format string, args ...any) error {
	return &MissingConfigurationError{EmployeeCode: code, What: fmt.Sprintf(format, args...)}
}
