/*
source.go - Collaborator interfaces of the payroll pipeline

PURPOSE:
  The pipeline never talks to a database directly. It reads attendance,
  compensation and policy data through the interfaces below and writes only
  two things: auto-generated insurance components and the pay statement.

KEY INTERFACES:
  EmployeeSource:     Employee profile (dependents count)
  AttendanceSource:   Daily/monthly attendance and pending requests
  CompensationSource: Salary windows, components, auto-component upsert
  PolicySource:       Insurance policies, tax brackets, legal deductions
  StatementStore:     Pay statement persistence and payroll closing
  Store:              All of the above plus WithTx

WRITE CONTRACT:
  UpsertAutoComponent is keyed by (employee, name, period): a second call
  with the same key overwrites the value, it never adds a row. A
  non-positive amount removes the row for that key if there is one.

  UpsertDraftStatement is a single conditional write: it creates the
  statement, or replaces the totals and the whole line-item list of an
  existing DRAFT. Against an APPROVED statement it returns
  *ImmutableStateError and changes nothing.

IMPLEMENTATIONS:
  - payroll/store/memory.go: In-memory, for tests and demos
  - store/sqlite/sqlite.go:  SQLite
*/
package payroll

import (
	"context"

	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// READ INTERFACES
// =============================================================================

type EmployeeSource interface {
	// GetEmployee returns ErrEmployeeNotFound for unknown codes.
	GetEmployee(ctx context.Context, code EmployeeCode) (*Employee, error)
}

type AttendanceSource interface {
	// GetDailyAttendance returns the records dated within [start, end].
	GetDailyAttendance(ctx context.Context, emp EmployeeCode, start, end generic.Date) ([]AttendanceDailyRecord, error)

	// GetMonthAttendance returns nil, nil when the month has no summary.
	GetMonthAttendance(ctx context.Context, emp EmployeeCode, month generic.Month) (*AttendanceMonthSummary, error)

	// HasPendingRequest reports whether a request of the given kind
	// overlapping the month is still awaiting a decision.
	HasPendingRequest(ctx context.Context, emp EmployeeCode, month generic.Month, kind RequestKind) (bool, error)
}

type CompensationSource interface {
	// GetActiveSalaryInformation returns ACTIVE windows overlapping
	// [start, end], ordered by effective-from.
	GetActiveSalaryInformation(ctx context.Context, emp EmployeeCode, start, end generic.Date) ([]SalaryInformation, error)

	// GetActiveComponents returns components whose window overlaps
	// [start, end].
	GetActiveComponents(ctx context.Context, emp EmployeeCode, start, end generic.Date) ([]PayComponent, error)

	// UpsertAutoComponent files amount under AutoComponentType. Returns
	// *MissingConfigurationError when that type is not configured. An
	// amount <= 0 deletes the keyed row and needs no type.
	UpsertAutoComponent(ctx context.Context, emp EmployeeCode, name string, period generic.Period, amount int64) error
}

type PolicySource interface {
	GetActiveInsurancePolicies(ctx context.Context, asOf generic.Date) ([]InsurancePolicy, error)
	GetActiveTaxBrackets(ctx context.Context, asOf generic.Date) ([]TaxBracket, error)
	GetActiveDeductionPolicies(ctx context.Context, asOf generic.Date) ([]LegalDeductionPolicy, error)
}

// =============================================================================
// WRITE INTERFACES
// =============================================================================

type StatementStore interface {
	// GetStatement returns ErrStatementNotFound when none exists.
	GetStatement(ctx context.Context, emp EmployeeCode, month generic.Month) (*PayStatement, error)

	// ListStatements returns the month's statements ordered by employee.
	ListStatements(ctx context.Context, month generic.Month) ([]PayStatement, error)

	UpsertDraftStatement(ctx context.Context, emp EmployeeCode, month generic.Month, totals Totals, items []LineItem) (*PayStatement, error)

	// ApproveStatement moves a DRAFT to APPROVED. Approving an APPROVED
	// statement returns *ImmutableStateError.
	ApproveStatement(ctx context.Context, emp EmployeeCode, month generic.Month) (*PayStatement, error)

	// ApprovePeriod approves every DRAFT of the month and returns how many
	// changed state.
	ApprovePeriod(ctx context.Context, month generic.Month) (int, error)
}

// Source is everything one calculation reads and writes.
type Source interface {
	EmployeeSource
	AttendanceSource
	CompensationSource
	PolicySource
	StatementStore
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// Store runs calculations atomically.
type Store interface {
	Source

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the Source is rolled back.
	WithTx(ctx context.Context, fn func(Source) error) error
}

// HasPendingLeaveOrOvertime checks the overtime queue, then the leave queue,
// and returns the kind of the first pending request found.
func HasPendingLeaveOrOvertime(ctx context.Context, src AttendanceSource, emp EmployeeCode, month generic.Month) (bool, RequestKind, error) {
	for _, kind := range []RequestKind{RequestOvertime, RequestLeave} {
		pending, err := src.HasPendingRequest(ctx, emp, month, kind)
		if err != nil {
			return false, "", err
		}
		if pending {
			return true, kind, nil
		}
	}
	return false, "", nil
}
