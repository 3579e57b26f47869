package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// OVERTIME - Taxed normal portion and untaxed premium
// =============================================================================
//
// Each overtime day is priced with the salary window covering that exact
// date, so a mid-month raise applies to overtime worked after it:
//
//	hourlyRate = round0(baseSalary / (standardDays * 8))
//	normal    += hourlyRate * hours
//	premium   += hourlyRate * max(dayRate - 1, 0) * hours
//
// Both sums are rounded to money independently.

var hoursPerStandardDay = decimal.NewFromInt(8)

type OvertimeResult struct {
	Hours   decimal.Decimal
	Normal  int64
	Premium int64
}

// Total is the headline overtime amount.
func (r OvertimeResult) Total() int64 { return r.Normal + r.Premium }

type OvertimeCalculator struct{}

// Calculate prices the overtime of the month. Days with no covering salary
// window are not paid.
func (OvertimeCalculator) Calculate(daily []AttendanceDailyRecord, salaries []SalaryInformation, summary AttendanceMonthSummary) (OvertimeResult, error) {
	if !summary.StandardDays.IsPositive() {
		return OvertimeResult{}, missing(summary.EmployeeCode, "standard days for %s", summary.Month)
	}
	hoursInMonth := summary.StandardDays.Mul(hoursPerStandardDay)

	var (
		hours   = decimal.Zero
		normal  = decimal.Zero
		premium = decimal.Zero
	)
	for _, rec := range daily {
		if !rec.OvertimeHours.IsPositive() {
			continue
		}
		si := salaryOn(salaries, rec.Date)
		if si == nil {
			continue
		}

		hourly := generic.Money(si.BaseSalary).DivRound(hoursInMonth, 0)
		hours = hours.Add(rec.OvertimeHours)
		normal = normal.Add(hourly.Mul(rec.OvertimeHours))
		premium = premium.Add(hourly.Mul(premiumRate(rec.DayType)).Mul(rec.OvertimeHours))
	}

	return OvertimeResult{
		Hours:   hours,
		Normal:  generic.ToMoney(normal),
		Premium: generic.ToMoney(premium),
	}, nil
}

// premiumRate is the share of the multiplier above 1, floored at 0.
func premiumRate(dt *DayType) decimal.Decimal {
	if dt == nil {
		return decimal.Zero
	}
	extra := dt.OvertimeRate.Sub(generic.One)
	if extra.IsNegative() {
		return decimal.Zero
	}
	return extra
}

// salaryOn returns the first window covering d.
func salaryOn(salaries []SalaryInformation, d generic.Date) *SalaryInformation {
	for i := range salaries {
		if salaries[i].Window.Covers(d) {
			return &salaries[i]
		}
	}
	return nil
}

// LineItems returns the normal and premium portions, omitting zeros.
func (r OvertimeResult) LineItems() []LineItem {
	if r.Normal == 0 && r.Premium == 0 {
		return nil
	}
	items := []LineItem{{
		Name:     "Overtime",
		Category: CategoryOvertime,
		Amount:   r.Normal,
		Note:     fmt.Sprintf("%s hours, taxed", r.Hours.String()),
	}}
	if r.Premium != 0 {
		items = append(items, LineItem{
			Name:     "Overtime premium",
			Category: CategoryOvertime,
			Amount:   r.Premium,
			Note:     "not taxed",
		})
	}
	return items
}
