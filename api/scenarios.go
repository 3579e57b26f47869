/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built scenarios that populate the database with realistic
	payroll inputs for one month. Each scenario creates the statutory
	configuration, employees, salary windows, components and attendance
	that demonstrate specific pipeline features.

AVAILABLE SCENARIOS:
	standard-month:  Three employees: dependents, overtime, mid-month raise
	leave-month:     Sick and maternity leave paid by social insurance
	pending-month:   One employee blocked by a pending leave request

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save statutory configuration (insurance, deductions, tax ladder)
 3. Save employees with salary windows and components
 4. Save monthly summary and daily attendance (Mon-Fri is a work day)

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "standard-month", "month": "2025-03"}

NOTE:
	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Calculation endpoints to run on the loaded data
  - store/sqlite/seed.go: Reference data writes
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-month",
		Name:        "Standard Month",
		Description: "Three employees with dependents, holiday overtime, allowances and a mid-month raise",
	},
	{
		ID:          "leave-month",
		Name:        "Leave Month",
		Description: "Sick and maternity leave paid by social insurance as auto components",
	},
	{
		ID:          "pending-month",
		Name:        "Pending Request",
		Description: "One employee blocked by an unresolved leave request",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads a demo scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	month := generic.MonthOf(generic.Today()).Previous()
	if req.Month != "" {
		m, err := generic.ParseMonth(req.Month)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
			return
		}
		month = m
	}

	ctx := r.Context()
	if err := LoadScenario(ctx, h.Store, req.ScenarioID, month); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to load scenario", err)
		return
	}

	h.logger.InfoContext(ctx, "scenario loaded", "scenario", req.ScenarioID, "month", month.String())
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"month":    month.String(),
	})
}

// LoadScenario resets store and loads the scenario id for month.
func LoadScenario(ctx context.Context, store *sqlite.Store, id string, month generic.Month) error {
	var load func(context.Context, *sqlite.Store, generic.Month) error
	switch id {
	case "standard-month":
		load = loadStandardMonth
	case "leave-month":
		load = loadLeaveMonth
	case "pending-month":
		load = loadPendingMonth
	default:
		return fmt.Errorf("unknown scenario: %s", id)
	}

	if err := store.Reset(ctx); err != nil {
		return err
	}
	if err := seedStatutory(ctx, store); err != nil {
		return err
	}
	return load(ctx, store, month)
}

// =============================================================================
// STATUTORY CONFIGURATION
// =============================================================================

var statutoryFrom = generic.NewDate(2020, time.January, 1)

var (
	typeBonus     = payroll.PayComponentType{Name: "Bonus", IsTaxed: true, IsInsured: true}
	typeAllowance = payroll.PayComponentType{Name: "Lunch allowance"}
	typeUnionFee  = payroll.PayComponentType{Name: "Union fee"}
	typeSeniority = payroll.PayComponentType{Name: "Seniority", IsTaxed: true, IsInsured: true}
)

func seedStatutory(ctx context.Context, s *sqlite.Store) error {
	open := generic.Window{From: statutoryFrom}

	for _, ct := range []payroll.PayComponentType{
		{Name: payroll.AutoComponentType}, typeBonus, typeAllowance, typeUnionFee, typeSeniority,
	} {
		if _, err := s.SaveComponentType(ctx, ct); err != nil {
			return err
		}
	}

	for _, p := range []payroll.InsurancePolicy{
		{Name: "Social insurance", EmployeePercentage: pct("0.08"), CompanyPercentage: pct("0.175"), MaxAmount: 46_800_000},
		{Name: "Health insurance", EmployeePercentage: pct("0.015"), CompanyPercentage: pct("0.03"), MaxAmount: 46_800_000},
		{Name: "Unemployment insurance", EmployeePercentage: pct("0.01"), CompanyPercentage: pct("0.01"), MaxAmount: 99_200_000},
	} {
		p.Window = open
		if err := s.SaveInsurancePolicy(ctx, p); err != nil {
			return err
		}
	}

	for _, d := range []payroll.LegalDeductionPolicy{
		{Code: payroll.PersonalDeduction, Amount: 11_000_000},
		{Code: payroll.DependentDeduction, Amount: 4_400_000},
	} {
		d.Window = open
		if err := s.SaveDeductionPolicy(ctx, d); err != nil {
			return err
		}
	}

	ladder := []struct {
		lower, upper int64
		rate         string
	}{
		{0, 5_000_000, "0.05"},
		{5_000_000, 10_000_000, "0.10"},
		{10_000_000, 18_000_000, "0.15"},
		{18_000_000, 32_000_000, "0.20"},
		{32_000_000, 52_000_000, "0.25"},
		{52_000_000, 80_000_000, "0.30"},
		{80_000_000, 0, "0.35"},
	}
	for i, rung := range ladder {
		b := payroll.TaxBracket{
			Name:       fmt.Sprintf("Bracket %d", i+1),
			LowerBound: rung.lower,
			Rate:       pct(rung.rate),
			Window:     open,
		}
		if rung.upper > 0 {
			upper := rung.upper
			b.UpperBound = &upper
		}
		if err := s.SaveTaxBracket(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

var holiday = payroll.DayType{Code: "holiday", Name: "Public holiday", OvertimeRate: decimal.NewFromInt(3)}
var weekend = payroll.DayType{Code: "weekend", Name: "Weekend", OvertimeRate: decimal.NewFromInt(2)}

func loadStandardMonth(ctx context.Context, s *sqlite.Store, month generic.Month) error {
	if err := seedWorker(ctx, s, month, payroll.Employee{Code: "E001", Name: "Nguyen Van An", DependentsCount: 1, Active: true}, 20_000_000); err != nil {
		return err
	}
	if err := seedWorker(ctx, s, month, payroll.Employee{Code: "E002", Name: "Tran Thi Binh", Active: true}, 12_000_000); err != nil {
		return err
	}

	// E003 gets a raise on the 16th.
	e3 := payroll.Employee{Code: "E003", Name: "Le Van Cuong", DependentsCount: 2, Active: true}
	if err := s.SaveEmployee(ctx, e3); err != nil {
		return err
	}
	raise := generic.NewDate(month.Year, month.Month, 16)
	before := raise.AddDays(-1)
	if err := s.SaveSalaryInformation(ctx, payroll.SalaryInformation{EmployeeCode: e3.Code, BaseSalary: 30_000_000,
		Window: generic.Window{From: statutoryFrom, To: &before}}); err != nil {
		return err
	}
	if err := s.SaveSalaryInformation(ctx, payroll.SalaryInformation{EmployeeCode: e3.Code, BaseSalary: 36_000_000,
		Window: generic.Window{From: raise}}); err != nil {
		return err
	}
	if err := seedAttendance(ctx, s, e3.Code, month); err != nil {
		return err
	}

	end := month.End()
	components := []payroll.PayComponent{
		{EmployeeCode: "E001", Name: "Performance bonus", Type: typeBonus, Value: amount(1_000_000), IsAddition: true,
			Window: generic.Window{From: month.Start(), To: &end}},
		{EmployeeCode: "E001", Name: "Lunch allowance", Type: typeAllowance, Value: amount(730_000), IsAddition: true,
			Window: generic.Window{From: statutoryFrom}},
		{EmployeeCode: "E001", Name: "Union fee", Type: typeUnionFee, Value: amount(100_000),
			Window: generic.Window{From: statutoryFrom}},
		{EmployeeCode: "E002", Name: "Lunch allowance", Type: typeAllowance, Value: amount(730_000), IsAddition: true,
			Window: generic.Window{From: statutoryFrom}},
		{EmployeeCode: "E003", Name: "Seniority", Type: typeSeniority, Percent: ratio("0.05"), IsAddition: true,
			Window: generic.Window{From: statutoryFrom}},
	}
	for _, c := range components {
		if err := s.SaveComponent(ctx, c); err != nil {
			return err
		}
	}

	// Overtime on the last Saturday and on the 30th as a holiday.
	overtime := []payroll.AttendanceDailyRecord{
		{EmployeeCode: "E001", Date: lastWeekday(month, time.Saturday), OvertimeHours: decimal.NewFromInt(4), DayType: &weekend},
		{EmployeeCode: "E002", Date: lastWeekday(month, time.Saturday), OvertimeHours: decimal.NewFromInt(6), DayType: &weekend},
	}
	if month.End().Day() >= 30 {
		overtime = append(overtime, payroll.AttendanceDailyRecord{EmployeeCode: "E003",
			Date: generic.NewDate(month.Year, month.Month, 30), OvertimeHours: decimal.NewFromInt(2), DayType: &holiday})
	}
	merged, err := mergeWorkedDays(ctx, s, overtime)
	if err != nil {
		return err
	}
	if err := s.SaveDailyAttendance(ctx, merged...); err != nil {
		return err
	}
	return addOvertimeToSummaries(ctx, s, month, overtime)
}

func loadLeaveMonth(ctx context.Context, s *sqlite.Store, month generic.Month) error {
	sick := payroll.Employee{Code: "E010", Name: "Pham Thi Dung", Active: true}
	if err := seedWorker(ctx, s, month, sick, 15_000_000); err != nil {
		return err
	}
	leave := payroll.Employee{Code: "E011", Name: "Hoang Thi Em", DependentsCount: 1, Active: true}
	if err := seedWorker(ctx, s, month, leave, 18_000_000); err != nil {
		return err
	}

	// E010: the first three work days sick; E011: the second half on maternity.
	var records []payroll.AttendanceDailyRecord
	for i, d := range workDays(month) {
		if i < 3 {
			records = append(records, payroll.AttendanceDailyRecord{EmployeeCode: sick.Code, Date: d, LeaveType: payroll.LeaveSick})
		}
		if d.Day() > 15 {
			records = append(records, payroll.AttendanceDailyRecord{EmployeeCode: leave.Code, Date: d, LeaveType: payroll.LeaveMaternity})
		}
	}
	return s.SaveDailyAttendance(ctx, records...)
}

func loadPendingMonth(ctx context.Context, s *sqlite.Store, month generic.Month) error {
	if err := seedWorker(ctx, s, month, payroll.Employee{Code: "E020", Name: "Vo Van Phuc", Active: true}, 14_000_000); err != nil {
		return err
	}
	if err := seedWorker(ctx, s, month, payroll.Employee{Code: "E021", Name: "Dang Thi Giang", Active: true}, 16_000_000); err != nil {
		return err
	}
	last := month.End()
	return s.SavePendingRequest(ctx, payroll.PendingRequest{
		EmployeeCode: "E021",
		Kind:         payroll.RequestLeave,
		Period:       generic.Period{Start: last.AddDays(-1), End: last},
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// seedWorker saves an employee with one open salary window and a full month
// of attendance.
func seedWorker(ctx context.Context, s *sqlite.Store, month generic.Month, e payroll.Employee, base int64) error {
	if err := s.SaveEmployee(ctx, e); err != nil {
		return err
	}
	if err := s.SaveSalaryInformation(ctx, payroll.SalaryInformation{
		EmployeeCode: e.Code,
		BaseSalary:   base,
		Window:       generic.Window{From: statutoryFrom},
	}); err != nil {
		return err
	}
	return seedAttendance(ctx, s, e.Code, month)
}

// seedAttendance marks every Monday-Friday as a full work day.
func seedAttendance(ctx context.Context, s *sqlite.Store, emp payroll.EmployeeCode, month generic.Month) error {
	days := workDays(month)
	if err := s.SaveMonthAttendance(ctx, payroll.AttendanceMonthSummary{
		EmployeeCode:        emp,
		Month:               month,
		StandardDays:        decimal.NewFromInt(int64(len(days))),
		StandardHoursPerDay: decimal.NewFromInt(8),
	}); err != nil {
		return err
	}

	records := make([]payroll.AttendanceDailyRecord, len(days))
	for i, d := range days {
		records[i] = payroll.AttendanceDailyRecord{
			EmployeeCode: emp,
			Date:         d,
			WorkedHours:  decimal.NewFromInt(8),
			FullPayable:  true,
		}
	}
	return s.SaveDailyAttendance(ctx, records...)
}

// mergeWorkedDays keeps the worked hours of a day that already has a record
// when overtime is added to it.
func mergeWorkedDays(ctx context.Context, s *sqlite.Store, overtime []payroll.AttendanceDailyRecord) ([]payroll.AttendanceDailyRecord, error) {
	out := make([]payroll.AttendanceDailyRecord, len(overtime))
	for i, ot := range overtime {
		out[i] = ot
		existing, err := s.GetDailyAttendance(ctx, ot.EmployeeCode, ot.Date, ot.Date)
		if err != nil {
			return nil, err
		}
		if len(existing) == 0 {
			continue
		}
		out[i].WorkedHours = existing[0].WorkedHours
		out[i].FullPayable = existing[0].FullPayable
		out[i].LeaveType = existing[0].LeaveType
	}
	return out, nil
}

// addOvertimeToSummaries adds the overtime hours to each employee's month
// summary total.
func addOvertimeToSummaries(ctx context.Context, s *sqlite.Store, month generic.Month, overtime []payroll.AttendanceDailyRecord) error {
	for _, ot := range overtime {
		summary, err := s.GetMonthAttendance(ctx, ot.EmployeeCode, month)
		if err != nil {
			return err
		}
		if summary == nil {
			return fmt.Errorf("no attendance summary for %s", ot.EmployeeCode)
		}
		summary.TotalOvertimeHours = summary.TotalOvertimeHours.Add(ot.OvertimeHours)
		if err := s.SaveMonthAttendance(ctx, *summary); err != nil {
			return err
		}
	}
	return nil
}

func workDays(month generic.Month) []generic.Date {
	var out []generic.Date
	for _, d := range month.Period().Days() {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

func lastWeekday(month generic.Month, wd time.Weekday) generic.Date {
	d := month.End()
	for d.Weekday() != wd {
		d = d.AddDays(-1)
	}
	return d
}

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ratio(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func amount(v int64) *int64 { return &v }
