package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var march = generic.NewMonth(2025, time.March)

func day(d int) generic.Date { return generic.NewDate(2025, time.March, d) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func money(v int64) *int64 { return &v }

func openFrom(d generic.Date) generic.Window { return generic.Window{From: d} }

func window(from, to generic.Date) generic.Window { return generic.Window{From: from, To: &to} }

var longAgo = generic.NewDate(2020, time.January, 1)

func summary(emp payroll.EmployeeCode, stdDays string) payroll.AttendanceMonthSummary {
	return payroll.AttendanceMonthSummary{
		EmployeeCode:        emp,
		Month:               march,
		StandardDays:        dec(stdDays),
		StandardHoursPerDay: dec("8"),
	}
}

func salary(emp payroll.EmployeeCode, base int64, w generic.Window) payroll.SalaryInformation {
	return payroll.SalaryInformation{
		EmployeeCode: emp,
		BaseSalary:   base,
		Window:       w,
		Status:       payroll.SalaryActive,
	}
}

// fullDays returns one fully payable record per listed day.
func fullDays(emp payroll.EmployeeCode, days ...int) []payroll.AttendanceDailyRecord {
	out := make([]payroll.AttendanceDailyRecord, 0, len(days))
	for _, d := range days {
		out = append(out, payroll.AttendanceDailyRecord{
			EmployeeCode: emp,
			Date:         day(d),
			WorkedHours:  dec("8"),
			FullPayable:  true,
		})
	}
	return out
}

func dayRange(from, to int) []int {
	var out []int
	for d := from; d <= to; d++ {
		out = append(out, d)
	}
	return out
}

func overtimeDay(emp payroll.EmployeeCode, d int, hours, rate string) payroll.AttendanceDailyRecord {
	return payroll.AttendanceDailyRecord{
		EmployeeCode:  emp,
		Date:          day(d),
		OvertimeHours: dec(hours),
		DayType:       &payroll.DayType{Code: "holiday", OvertimeRate: dec(rate)},
	}
}

var (
	autoType      = payroll.PayComponentType{Name: payroll.AutoComponentType}
	taxedInsured  = payroll.PayComponentType{Name: "Bonus", IsTaxed: true, IsInsured: true}
	nonTaxed      = payroll.PayComponentType{Name: "Lunch allowance"}
	deductionType = payroll.PayComponentType{Name: "Union fee"}
)

// newPolicyStore returns a store holding the statutory configuration:
// one insurance scheme, personal/dependent deductions and a four-rung ladder.
func newPolicyStore(t *testing.T) *store.Memory {
	t.Helper()
	s := store.NewMemory()

	s.SaveComponentType(autoType)
	s.SaveInsurancePolicy(payroll.InsurancePolicy{
		Name:               "Social insurance",
		EmployeePercentage: dec("0.08"),
		CompanyPercentage:  dec("0.175"),
		MaxAmount:          46_800_000,
		Window:             openFrom(longAgo),
	})
	s.SaveDeductionPolicy(payroll.LegalDeductionPolicy{
		Code: payroll.PersonalDeduction, Amount: 11_000_000, Window: openFrom(longAgo),
	})
	s.SaveDeductionPolicy(payroll.LegalDeductionPolicy{
		Code: payroll.DependentDeduction, Amount: 4_400_000, Window: openFrom(longAgo),
	})
	for _, b := range ladder() {
		s.SaveTaxBracket(b)
	}
	return s
}

func ladder() []payroll.TaxBracket {
	return []payroll.TaxBracket{
		{Name: "L1", LowerBound: 0, UpperBound: money(5_000_000), Rate: dec("0.05"), Window: openFrom(longAgo)},
		{Name: "L2", LowerBound: 5_000_000, UpperBound: money(10_000_000), Rate: dec("0.10"), Window: openFrom(longAgo)},
		{Name: "L3", LowerBound: 10_000_000, UpperBound: money(18_000_000), Rate: dec("0.15"), Window: openFrom(longAgo)},
		{Name: "L4", LowerBound: 18_000_000, Rate: dec("0.20"), Window: openFrom(longAgo)},
	}
}

// seedEmployee adds an employee with a single open salary window and the
// given fully payable days in March.
func seedEmployee(s *store.Memory, code payroll.EmployeeCode, base int64, dependents int, days ...int) {
	s.SaveEmployee(payroll.Employee{Code: code, Name: string(code), DependentsCount: dependents, Active: true})
	s.SaveSalaryInformation(salary(code, base, openFrom(longAgo)))
	s.SaveMonthAttendance(summary(code, "20"))
	s.SaveDailyAttendance(fullDays(code, days...)...)
}

func periodOf(from, to int) generic.Period {
	return generic.Period{Start: day(from), End: day(to)}
}
