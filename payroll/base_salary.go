package payroll

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// BASE SALARY - Proration across effective-dated salary windows
// =============================================================================
//
// For each salary window clipped to the month:
//
//	payableDays = Σ day credit over the clipped range
//	prorated    = round2(baseSalary * payableDays / standardDays)
//
// Day credit: sick/maternity days earn nothing here and accrue an insurance
// payout instead, summed over every window of the month. A fully payable
// day earns 1; any other day with worked hours earns
// round1(workedHours / standardHoursPerDay).
//
// The month amount is round0(Σ prorated).

var (
	sickPayRate      = decimal.RequireFromString("0.75")
	maternityPayRate = decimal.NewFromInt(1)
)

// BaseSalaryResult is the proration of one month.
type BaseSalaryResult struct {
	Amount          int64
	PayableDays     decimal.Decimal
	SickPayout      int64
	MaternityPayout int64
	Windows         []WindowProration
}

// WindowProration is the share of one salary window.
type WindowProration struct {
	SalaryID    string
	BaseSalary  int64
	Period      generic.Period
	PayableDays decimal.Decimal
	Amount      decimal.Decimal // rounded to 2 places
}

type BaseSalaryCalculator struct{}

// Prorate computes the month's base salary. It has no side effects.
func (BaseSalaryCalculator) Prorate(month generic.Month, daily []AttendanceDailyRecord, summary AttendanceMonthSummary, salaries []SalaryInformation) (BaseSalaryResult, error) {
	if !summary.StandardDays.IsPositive() {
		return BaseSalaryResult{}, missing(summary.EmployeeCode, "standard days for %s", month)
	}
	if !summary.StandardHoursPerDay.IsPositive() {
		return BaseSalaryResult{}, missing(summary.EmployeeCode, "standard hours per day for %s", month)
	}

	var (
		result BaseSalaryResult
		total  = decimal.Zero
	)
	for _, si := range salaries {
		clipped, ok := si.Window.Clip(month.Period())
		if !ok {
			continue
		}

		base := generic.Money(si.BaseSalary)
		dayRate := generic.DivScaled(base, summary.StandardDays)
		payable := decimal.Zero

		for _, rec := range daily {
			if !clipped.Contains(rec.Date) {
				continue
			}
			switch {
			case rec.LeaveType.IsInsuranceFunded():
				if rec.LeaveType == LeaveSick {
					result.SickPayout += generic.ToMoney(dayRate.Mul(sickPayRate))
				} else {
					result.MaternityPayout += generic.ToMoney(dayRate.Mul(maternityPayRate))
				}
			case rec.FullPayable:
				payable = payable.Add(generic.One)
			case rec.WorkedHours.IsPositive():
				payable = payable.Add(rec.WorkedHours.DivRound(summary.StandardHoursPerDay, 1))
			}
		}

		prorated := base.Mul(payable).DivRound(summary.StandardDays, 2)
		total = total.Add(prorated)
		result.PayableDays = result.PayableDays.Add(payable)
		result.Windows = append(result.Windows, WindowProration{
			SalaryID:    si.ID,
			BaseSalary:  si.BaseSalary,
			Period:      clipped,
			PayableDays: payable,
			Amount:      prorated,
		})
	}

	result.Amount = generic.ToMoney(total)
	return result, nil
}

// Calculate prorates the month and upserts the sick and maternity payouts
// as auto components covering the whole month. A zero payout clears the
// component left by an earlier draft.
func (c BaseSalaryCalculator) Calculate(ctx context.Context, w CompensationSource, emp EmployeeCode, month generic.Month, daily []AttendanceDailyRecord, summary AttendanceMonthSummary, salaries []SalaryInformation) (BaseSalaryResult, error) {
	result, err := c.Prorate(month, daily, summary, salaries)
	if err != nil {
		return BaseSalaryResult{}, err
	}

	payouts := []struct {
		name   string
		amount int64
	}{
		{SickLeaveComponent, result.SickPayout},
		{MaternityLeaveComponent, result.MaternityPayout},
	}
	for _, p := range payouts {
		if err := w.UpsertAutoComponent(ctx, emp, p.name, month.Period(), p.amount); err != nil {
			return BaseSalaryResult{}, fmt.Errorf("upsert %s: %w", p.name, err)
		}
	}
	return result, nil
}

// LineItems describes each prorated window of the result.
func (r BaseSalaryResult) LineItems() []LineItem {
	items := make([]LineItem, 0, len(r.Windows))
	for _, w := range r.Windows {
		items = append(items, LineItem{
			Name:     "Base salary " + w.Period.String(),
			Category: CategoryBaseSalary,
			Amount:   generic.ToMoney(w.Amount),
			Note:     fmt.Sprintf("base %d, payable days %s", w.BaseSalary, w.PayableDays.String()),
		})
	}
	return items
}
