/*
Package payroll computes the monthly pay statement of an employee.

PURPOSE:
  Turns a month of attendance, effective-dated salary windows, ad hoc pay
  components and statutory policies (insurance, tax brackets, legal
  deductions) into a net salary, and records the result as a pay statement
  with a line-item snapshot of every contributing calculation.

PIPELINE (per employee, per month):
  1. Block if a leave or overtime request for the month is still pending
  2. Prorate base salary across the salary windows overlapping the month
  3. Price overtime as a taxed normal portion and an untaxed premium
  4. Net the ad hoc components, split by tax and insurance treatment
  5. Apply every active insurance policy to the insurance base
  6. Apply legal deductions and the progressive bracket ladder
  7. Persist the statement as DRAFT, or fail if it is already APPROVED

KEY CONCEPTS IN THIS FILE (types.go):
  - Attendance facts: AttendanceDailyRecord, AttendanceMonthSummary
  - Compensation: SalaryInformation, PayComponentType, PayComponent
  - Policies: InsurancePolicy, TaxBracket, LegalDeductionPolicy
  - Output: PayStatement, Totals, LineItem

MONETARY CONVENTION:
  Amounts are int64 in the smallest currency unit. Rates, percentages and
  hours are decimal.Decimal. See generic/money.go for the rounding rules.

SEE ALSO:
  - source.go:       Read/write interfaces the pipeline runs against
  - orchestrator.go: Sequencing and the DRAFT/APPROVED state machine
  - batch.go:        Many employees, partial-failure semantics
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// EmployeeCode identifies an employee across every source.
type EmployeeCode string

// Employee is the slice of the employee profile the pipeline reads.
type Employee struct {
	Code            EmployeeCode
	Name            string
	DependentsCount int
	Active          bool
}

// =============================================================================
// ATTENDANCE - Read-only facts produced by attendance aggregation
// =============================================================================

type LeaveType string

const (
	LeaveNone      LeaveType = ""
	LeaveSick      LeaveType = "sick"
	LeaveMaternity LeaveType = "maternity"
)

// IsInsuranceFunded reports whether days of this leave are paid by social
// insurance instead of counting as payable days.
func (l LeaveType) IsInsuranceFunded() bool {
	return l == LeaveSick || l == LeaveMaternity
}

// DayType classifies a calendar day for overtime pricing.
type DayType struct {
	Code         string // weekday, weekend, holiday
	Name         string
	OvertimeRate decimal.Decimal // multiplier, 1.5 means 150%
}

type AttendanceDailyRecord struct {
	EmployeeCode  EmployeeCode
	Date          generic.Date
	WorkedHours   decimal.Decimal
	FullPayable   bool
	LeaveType     LeaveType
	OvertimeHours decimal.Decimal
	DayType       *DayType // nil means no premium
}

type AttendanceMonthSummary struct {
	EmployeeCode        EmployeeCode
	Month               generic.Month
	StandardDays        decimal.Decimal
	StandardHoursPerDay decimal.Decimal
	TotalOvertimeHours  decimal.Decimal
}

// RequestKind distinguishes the pending requests that block a calculation.
type RequestKind string

const (
	RequestLeave    RequestKind = "leave"
	RequestOvertime RequestKind = "overtime"
)

// PendingRequest is an unresolved leave or overtime request.
type PendingRequest struct {
	ID           string
	EmployeeCode EmployeeCode
	Kind         RequestKind
	Period       generic.Period
}

// =============================================================================
// COMPENSATION - Salary windows and ad hoc components
// =============================================================================

type SalaryStatus string

const (
	SalaryActive   SalaryStatus = "ACTIVE"
	SalaryInactive SalaryStatus = "INACTIVE"
)

// SalaryInformation is one effective-dated base salary.
// Windows of the same employee may overlap; each is clipped to the month
// independently.
type SalaryInformation struct {
	ID             string
	EmployeeCode   EmployeeCode
	BaseSalary     int64
	BaseHourlyRate int64
	Window         generic.Window
	Status         SalaryStatus
}

// PayComponentType is the classification shared by components.
type PayComponentType struct {
	ID               string
	Name             string
	IsTaxed          bool
	IsInsured        bool // value is added to the insurance base
	TaxTreatmentCode string
	PolicyCode       string
}

// AutoComponentType is the type every sick/maternity payout is filed under.
const AutoComponentType = "BHXH chi trả"

// Auto component names, one row per employee and month each.
const (
	SickLeaveComponent      = "BHXH nghỉ ốm"
	MaternityLeaveComponent = "BHXH nghỉ thai sản"
)

// PayComponent is a bonus, allowance or deduction.
//
// Value nil means the amount is still awaiting computation. When a Percent
// is set the amount is derived from the prorated base salary instead.
type PayComponent struct {
	ID           string
	EmployeeCode EmployeeCode
	Type         PayComponentType
	Name         string
	Value        *int64
	Window       generic.Window
	IsAddition   bool
	Percent      *decimal.Decimal
}

// =============================================================================
// POLICIES - Statutory configuration, effective-dated
// =============================================================================

// InsurancePolicy is one insurance scheme. Several may be active at once.
type InsurancePolicy struct {
	ID                 string
	Name               string
	EmployeePercentage decimal.Decimal
	CompanyPercentage  decimal.Decimal
	MaxAmount          int64 // cap on the insurance base, 0 means uncapped
	Window             generic.Window
}

// TaxBracket is one rung of the progressive ladder.
type TaxBracket struct {
	ID         string
	Name       string
	LowerBound int64
	UpperBound *int64 // nil for the open top bracket
	Rate       decimal.Decimal
	Window     generic.Window
}

type DeductionCode string

const (
	PersonalDeduction  DeductionCode = "PERSONAL_DEDUCTION"
	DependentDeduction DeductionCode = "DEPENDENT_DEDUCTION"
)

type LegalDeductionPolicy struct {
	ID     string
	Code   DeductionCode
	Amount int64
	Window generic.Window
}

// =============================================================================
// PAY STATEMENT - The aggregate the pipeline produces
// =============================================================================

type LineCategory string

const (
	CategoryBaseSalary   LineCategory = "BASE_SALARY"
	CategoryOvertime     LineCategory = "OVERTIME"
	CategoryAddition     LineCategory = "ADDITION"
	CategoryDeduction    LineCategory = "DEDUCTION"
	CategoryInsurance    LineCategory = "INSURANCE"
	CategoryTaxDeduction LineCategory = "TAX_DEDUCTION"
	CategoryTax          LineCategory = "TAX"
)

// LineItem is one named contribution in the statement snapshot.
type LineItem struct {
	Name     string
	Category LineCategory
	Amount   int64
	Note     string
}

// Totals are the headline figures of a statement.
type Totals struct {
	BaseSalaryAmount        int64
	OvertimeHours           decimal.Decimal
	OvertimeAmount          int64
	OvertimePremium         int64
	TotalAddition           int64
	TotalDeduction          int64
	GrossIncome             int64
	InsuranceBase           int64
	InsuranceAmount         int64 // employee share
	EmployerInsuranceAmount int64
	AssessableIncome        int64
	TaxableIncome           int64
	TaxAmount               int64
	NetSalary               int64
}

// PayStatement is the per-(employee, month) result. At most one exists per
// key; once APPROVED neither its totals nor its line items change.
type PayStatement struct {
	ID           string
	EmployeeCode EmployeeCode
	Month        generic.Month
	Status       Status
	Totals       Totals
	LineItems    []LineItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
