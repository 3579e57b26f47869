/*
orchestrator.go - Sequencing of the pipeline and the statement lifecycle

PURPOSE:
  Runs the calculators for one (employee, month) inside one store
  transaction and persists the result as a DRAFT pay statement.

STATE MACHINE:
  (none) --Calculate--> DRAFT --Calculate--> DRAFT (totals and items replaced)
                        DRAFT --Approve----> APPROVED (terminal)
                     APPROVED --Calculate--> *ImmutableStateError, unchanged

IDEMPOTENCY:
  Same inputs give the same totals and the same ordered line items. Line
  items carry no generated identifiers, and the auto components upserted on
  the way are keyed by (employee, name, period).

ATOMICITY:
  Every write of a calculation, auto components included, goes through the
  Source handed to WithTx. A failure at any step rolls all of them back.

USAGE:
  o := payroll.NewOrchestrator(store, payroll.WithLogger(logger))
  stmt, err := o.Calculate(ctx, "E001", generic.NewMonth(2025, time.March))
*/
package payroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warp/payroll-engine/generic"
)

type Orchestrator struct {
	store  Store
	logger *slog.Logger

	base       BaseSalaryCalculator
	overtime   OvertimeCalculator
	components ComponentAggregator
	insurance  InsuranceCalculator
	tax        TaxCalculator
}

type Option func(*Orchestrator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewOrchestrator(store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Calculate computes and persists the statement of emp for month atomically.
func (o *Orchestrator) Calculate(ctx context.Context, emp EmployeeCode, month generic.Month) (*PayStatement, error) {
	var stmt *PayStatement
	err := o.store.WithTx(ctx, func(src Source) error {
		var err error
		stmt, err = o.CalculateWith(ctx, src, emp, month)
		return err
	})
	if err != nil {
		o.logger.WarnContext(ctx, "payroll calculation failed",
			"employee", emp, "month", month.String(), "error", err)
		return nil, err
	}

	o.logger.InfoContext(ctx, "payroll calculated",
		"employee", emp, "month", month.String(),
		"gross", stmt.Totals.GrossIncome, "net", stmt.Totals.NetSalary)
	return stmt, nil
}

// CalculateWith runs the pipeline against src without opening a
// transaction. The caller owns atomicity.
func (o *Orchestrator) CalculateWith(ctx context.Context, src Source, emp EmployeeCode, month generic.Month) (*PayStatement, error) {
	period := month.Period()
	asOf := month.End()

	// 1. Pending requests
	pending, kind, err := HasPendingLeaveOrOvertime(ctx, src, emp, month)
	if err != nil {
		return nil, fmt.Errorf("check pending requests: %w", err)
	}
	if pending {
		return nil, &BlockedError{EmployeeCode: emp, Month: month, Kind: kind}
	}

	// 2. Inputs
	salaries, err := src.GetActiveSalaryInformation(ctx, emp, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("load salary information: %w", err)
	}
	if len(salaries) == 0 {
		return nil, missing(emp, "salary information for %s", month)
	}
	summary, err := src.GetMonthAttendance(ctx, emp, month)
	if err != nil {
		return nil, fmt.Errorf("load month attendance: %w", err)
	}
	if summary == nil {
		return nil, missing(emp, "attendance summary for %s", month)
	}
	daily, err := src.GetDailyAttendance(ctx, emp, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("load daily attendance: %w", err)
	}

	// 3. Base salary, overtime, components
	base, err := o.base.Calculate(ctx, src, emp, month, daily, *summary, salaries)
	if err != nil {
		return nil, err
	}
	ot, err := o.overtime.Calculate(daily, salaries, *summary)
	if err != nil {
		return nil, err
	}
	comps, err := o.components.Aggregate(ctx, src, emp, period, base.Amount)
	if err != nil {
		return nil, err
	}

	// 4-5. Gross and insurance
	t := Totals{
		BaseSalaryAmount: base.Amount,
		OvertimeHours:    summary.TotalOvertimeHours,
		OvertimeAmount:   ot.Total(),
		OvertimePremium:  ot.Premium,
		TotalAddition:    comps.TotalAddition,
		TotalDeduction:   comps.TotalDeduction,
	}
	t.GrossIncome = t.BaseSalaryAmount + t.OvertimeAmount + t.TotalAddition
	t.InsuranceBase = t.BaseSalaryAmount + comps.InsuranceBaseExtra

	ins, err := o.insurance.Calculate(ctx, src, t.InsuranceBase, asOf)
	if err != nil {
		return nil, err
	}
	t.InsuranceAmount = ins.Employee
	t.EmployerInsuranceAmount = ins.Employer

	// 6-7. Tax
	t.AssessableIncome = t.GrossIncome - comps.NonTaxableAddition - t.OvertimePremium
	tax, err := o.tax.Calculate(ctx, src, emp, t.AssessableIncome, t.InsuranceAmount, asOf, asOf)
	if err != nil {
		return nil, err
	}
	t.TaxableIncome = tax.TaxableIncome
	t.TaxAmount = tax.Tax

	// 8. Net
	t.NetSalary = t.GrossIncome - t.TaxAmount - t.InsuranceAmount - t.TotalDeduction

	// 9. Persist
	var items []LineItem
	items = append(items, base.LineItems()...)
	items = append(items, ot.LineItems()...)
	items = append(items, comps.LineItems...)
	items = append(items, ins.LineItems...)
	items = append(items, tax.LineItems...)

	return src.UpsertDraftStatement(ctx, emp, month, t, items)
}

// =============================================================================
// PAYROLL CLOSING - DRAFT -> APPROVED
// =============================================================================

// Approve freezes the statement of emp for month.
func (o *Orchestrator) Approve(ctx context.Context, emp EmployeeCode, month generic.Month) (*PayStatement, error) {
	stmt, err := o.store.ApproveStatement(ctx, emp, month)
	if err != nil {
		return nil, err
	}
	o.logger.InfoContext(ctx, "pay statement approved", "employee", emp, "month", month.String())
	return stmt, nil
}

// ApprovePeriod freezes every DRAFT of month.
func (o *Orchestrator) ApprovePeriod(ctx context.Context, month generic.Month) (int, error) {
	n, err := o.store.ApprovePeriod(ctx, month)
	if err != nil {
		return 0, fmt.Errorf("approve %s: %w", month, err)
	}
	o.logger.InfoContext(ctx, "payroll period approved", "month", month.String(), "statements", n)
	return n, nil
}
