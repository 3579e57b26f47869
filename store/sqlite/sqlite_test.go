package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

var (
	march   = generic.NewMonth(2025, time.March)
	longAgo = generic.NewDate(2020, time.January, 1)
)

func day(d int) generic.Date { return generic.NewDate(2025, time.March, d) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func money(v int64) *int64 { return &v }

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedPolicies stores the auto component type, one insurance scheme, the
// two legal deductions and a four-rung tax ladder.
func seedPolicies(t *testing.T, ctx context.Context, s *sqlite.Store) {
	t.Helper()
	open := generic.Window{From: longAgo}

	_, err := s.SaveComponentType(ctx, payroll.PayComponentType{Name: payroll.AutoComponentType})
	require.NoError(t, err)
	require.NoError(t, s.SaveInsurancePolicy(ctx, payroll.InsurancePolicy{
		Name: "Social insurance", EmployeePercentage: dec("0.08"), CompanyPercentage: dec("0.175"),
		MaxAmount: 46_800_000, Window: open,
	}))
	require.NoError(t, s.SaveDeductionPolicy(ctx, payroll.LegalDeductionPolicy{
		Code: payroll.PersonalDeduction, Amount: 11_000_000, Window: open}))
	require.NoError(t, s.SaveDeductionPolicy(ctx, payroll.LegalDeductionPolicy{
		Code: payroll.DependentDeduction, Amount: 4_400_000, Window: open}))

	for _, b := range []payroll.TaxBracket{
		{Name: "L1", LowerBound: 0, UpperBound: money(5_000_000), Rate: dec("0.05"), Window: open},
		{Name: "L2", LowerBound: 5_000_000, UpperBound: money(10_000_000), Rate: dec("0.10"), Window: open},
		{Name: "L3", LowerBound: 10_000_000, UpperBound: money(18_000_000), Rate: dec("0.15"), Window: open},
		{Name: "L4", LowerBound: 18_000_000, Rate: dec("0.20"), Window: open},
	} {
		require.NoError(t, s.SaveTaxBracket(ctx, b))
	}
}

// seedEmployee stores an employee with an open salary window, a 20-day
// month summary and fully payable days from 3 to 22 March.
func seedEmployee(t *testing.T, ctx context.Context, s *sqlite.Store, code payroll.EmployeeCode, base int64, dependents int) {
	t.Helper()
	require.NoError(t, s.SaveEmployee(ctx, payroll.Employee{Code: code, Name: string(code), DependentsCount: dependents, Active: true}))
	require.NoError(t, s.SaveSalaryInformation(ctx, payroll.SalaryInformation{
		EmployeeCode: code, BaseSalary: base, Window: generic.Window{From: longAgo}}))
	require.NoError(t, s.SaveMonthAttendance(ctx, payroll.AttendanceMonthSummary{
		EmployeeCode: code, Month: march, StandardDays: dec("20"), StandardHoursPerDay: dec("8")}))

	var days []payroll.AttendanceDailyRecord
	for d := 3; d <= 22; d++ {
		days = append(days, payroll.AttendanceDailyRecord{
			EmployeeCode: code, Date: day(d), WorkedHours: dec("8"), FullPayable: true})
	}
	require.NoError(t, s.SaveDailyAttendance(ctx, days...))
}

// =============================================================================
// READ PATHS
// =============================================================================

func TestStore_AttendanceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveDailyAttendance(ctx,
		payroll.AttendanceDailyRecord{EmployeeCode: "E001", Date: day(5), WorkedHours: dec("3"), LeaveType: payroll.LeaveNone},
		payroll.AttendanceDailyRecord{EmployeeCode: "E001", Date: day(6), LeaveType: payroll.LeaveSick},
		payroll.AttendanceDailyRecord{EmployeeCode: "E001", Date: day(29), OvertimeHours: dec("4"),
			DayType: &payroll.DayType{Code: "holiday", Name: "Holiday", OvertimeRate: dec("1.5")}},
		payroll.AttendanceDailyRecord{EmployeeCode: "E001", Date: generic.NewDate(2025, time.April, 1), FullPayable: true},
	))

	records, err := s.GetDailyAttendance(ctx, "E001", march.Start(), march.End())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.True(t, records[0].WorkedHours.Equal(dec("3")))
	assert.Nil(t, records[0].DayType)
	assert.Equal(t, payroll.LeaveSick, records[1].LeaveType)
	require.NotNil(t, records[2].DayType)
	assert.Equal(t, "holiday", records[2].DayType.Code)
	assert.True(t, records[2].DayType.OvertimeRate.Equal(dec("1.5")))
	assert.True(t, records[2].OvertimeHours.Equal(dec("4")))

	summary, err := s.GetMonthAttendance(ctx, "E001", march)
	require.NoError(t, err)
	assert.Nil(t, summary, "no summary stored")
}

func TestStore_EffectiveDatedQueries(t *testing.T) {
	// GIVEN: Salary windows ending before, overlapping and starting after March
	// WHEN: Querying March
	// THEN: Only overlapping ACTIVE windows come back, oldest first

	ctx := context.Background()
	s := newTestStore(t)

	febEnd := generic.NewDate(2025, time.February, 28)
	midMarch := day(15)
	for _, si := range []payroll.SalaryInformation{
		{EmployeeCode: "E001", BaseSalary: 8_000_000, Window: generic.Window{From: longAgo, To: &febEnd}},
		{EmployeeCode: "E001", BaseSalary: 10_000_000, Window: generic.Window{From: longAgo, To: &midMarch}},
		{EmployeeCode: "E001", BaseSalary: 15_000_000, Window: generic.Window{From: day(16)}},
		{EmployeeCode: "E001", BaseSalary: 99_000_000, Window: generic.Window{From: longAgo}, Status: payroll.SalaryInactive},
		{EmployeeCode: "E001", BaseSalary: 20_000_000, Window: generic.Window{From: generic.NewDate(2025, time.April, 1)}},
	} {
		require.NoError(t, s.SaveSalaryInformation(ctx, si))
	}

	got, err := s.GetActiveSalaryInformation(ctx, "E001", march.Start(), march.End())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10_000_000), got[0].BaseSalary)
	require.NotNil(t, got[0].Window.To)
	assert.True(t, got[0].Window.To.Equal(midMarch))
	assert.Equal(t, int64(15_000_000), got[1].BaseSalary)
	assert.Nil(t, got[1].Window.To)

	require.NoError(t, s.SaveTaxBracket(ctx, payroll.TaxBracket{Name: "old", Rate: dec("0.1"),
		Window: generic.Window{From: longAgo, To: &febEnd}}))
	require.NoError(t, s.SaveTaxBracket(ctx, payroll.TaxBracket{Name: "top", LowerBound: 0, Rate: dec("0.2"),
		Window: generic.Window{From: longAgo}}))
	brackets, err := s.GetActiveTaxBrackets(ctx, march.End())
	require.NoError(t, err)
	require.Len(t, brackets, 1)
	assert.Equal(t, "top", brackets[0].Name)
	assert.Nil(t, brackets[0].UpperBound)
}

func TestStore_ComponentsCarryTheirType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	typeID, err := s.SaveComponentType(ctx, payroll.PayComponentType{Name: "Bonus", IsTaxed: true, IsInsured: true})
	require.NoError(t, err)
	pct := dec("0.1")
	require.NoError(t, s.SaveComponent(ctx, payroll.PayComponent{EmployeeCode: "E001", Name: "Bonus",
		Type: payroll.PayComponentType{ID: typeID}, Value: money(1_000_000), IsAddition: true,
		Window: generic.Window{From: day(1)}}))
	require.NoError(t, s.SaveComponent(ctx, payroll.PayComponent{EmployeeCode: "E001", Name: "Seniority",
		Type: payroll.PayComponentType{Name: "Bonus"}, Percent: &pct, IsAddition: true,
		Window: generic.Window{From: day(1)}}))

	err = s.SaveComponent(ctx, payroll.PayComponent{EmployeeCode: "E001", Name: "Ghost",
		Type: payroll.PayComponentType{Name: "Unknown"}, Window: generic.Window{From: day(1)}})
	assert.Error(t, err)

	comps, err := s.GetActiveComponents(ctx, "E001", march.Start(), march.End())
	require.NoError(t, err)
	require.Len(t, comps, 2)

	bonus := comps[0]
	assert.Equal(t, "Bonus", bonus.Name)
	assert.True(t, bonus.Type.IsTaxed)
	assert.True(t, bonus.Type.IsInsured)
	require.NotNil(t, bonus.Value)
	assert.Equal(t, int64(1_000_000), *bonus.Value)
	assert.Nil(t, bonus.Percent)

	seniority := comps[1]
	assert.Nil(t, seniority.Value)
	require.NotNil(t, seniority.Percent)
	assert.True(t, seniority.Percent.Equal(pct))
}

func TestStore_PendingRequests(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SavePendingRequest(ctx, payroll.PendingRequest{EmployeeCode: "E001",
		Kind: payroll.RequestLeave, Period: generic.Period{Start: day(28), End: generic.NewDate(2025, time.April, 2)}}))

	blocked, err := s.HasPendingRequest(ctx, "E001", march, payroll.RequestLeave)
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = s.HasPendingRequest(ctx, "E001", march, payroll.RequestOvertime)
	require.NoError(t, err)
	assert.False(t, blocked)

	blocked, err = s.HasPendingRequest(ctx, "E001", generic.NewMonth(2025, time.February), payroll.RequestLeave)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, s.ResolvePendingRequests(ctx, "E001"))
	blocked, err = s.HasPendingRequest(ctx, "E001", march, payroll.RequestLeave)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestStore_GetEmployeeNotFound(t *testing.T) {
	_, err := newTestStore(t).GetEmployee(context.Background(), "NOPE")
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
	assert.True(t, payroll.IsNotFound(err))
}

// =============================================================================
// WRITE PATHS
// =============================================================================

func TestStore_UpsertAutoComponent(t *testing.T) {
	// GIVEN: The auto component type exists
	// WHEN: Upserting the same key twice with different amounts
	// THEN: One row holding the latest amount

	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.SaveComponentType(ctx, payroll.PayComponentType{Name: payroll.AutoComponentType})
	require.NoError(t, err)

	p := march.Period()
	require.NoError(t, s.UpsertAutoComponent(ctx, "E001", payroll.SickLeaveComponent, p, 681_818))
	require.NoError(t, s.UpsertAutoComponent(ctx, "E001", payroll.SickLeaveComponent, p, 1_363_636))

	comps, err := s.GetActiveComponents(ctx, "E001", p.Start, p.End)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, int64(1_363_636), *comps[0].Value)
	assert.True(t, comps[0].IsAddition)
	assert.Equal(t, payroll.AutoComponentType, comps[0].Type.Name)
}

func TestStore_UpsertAutoComponentWithoutType(t *testing.T) {
	err := newTestStore(t).UpsertAutoComponent(context.Background(), "E001",
		payroll.SickLeaveComponent, march.Period(), 100)

	var missing *payroll.MissingConfigurationError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, payroll.EmployeeCode("E001"), missing.EmployeeCode)
}

func TestStore_DraftStatementLifecycle(t *testing.T) {
	// GIVEN: A DRAFT statement
	// WHEN: Redrafting, approving, then redrafting again
	// THEN: The redraft replaces items in place; after approval writes are refused

	ctx := context.Background()
	s := newTestStore(t)

	items := []payroll.LineItem{
		{Name: "Base salary", Category: payroll.CategoryBaseSalary, Amount: 10_000_000},
		{Name: "Bonus", Category: payroll.CategoryAddition, Amount: 500_000, Note: "one-off"},
	}
	first, err := s.UpsertDraftStatement(ctx, "E001", march,
		payroll.Totals{BaseSalaryAmount: 10_000_000, OvertimeHours: dec("2.5"), NetSalary: 9_000_000}, items)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusDraft, first.Status)
	assert.Equal(t, items, first.LineItems)
	assert.True(t, first.Totals.OvertimeHours.Equal(dec("2.5")))

	second, err := s.UpsertDraftStatement(ctx, "E001", march,
		payroll.Totals{BaseSalaryAmount: 11_000_000, NetSalary: 9_900_000}, items[:1])
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(11_000_000), second.Totals.BaseSalaryAmount)
	assert.Len(t, second.LineItems, 1)

	approved, err := s.ApproveStatement(ctx, "E001", march)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusApproved, approved.Status)

	_, err = s.UpsertDraftStatement(ctx, "E001", march, payroll.Totals{NetSalary: 1}, nil)
	var immutable *payroll.ImmutableStateError
	require.ErrorAs(t, err, &immutable)

	stored, err := s.GetStatement(ctx, "E001", march)
	require.NoError(t, err)
	assert.Equal(t, int64(9_900_000), stored.Totals.NetSalary)
	assert.Len(t, stored.LineItems, 1)

	_, err = s.ApproveStatement(ctx, "E001", march)
	assert.ErrorIs(t, err, payroll.ErrImmutableState)

	_, err = s.ApproveStatement(ctx, "E404", march)
	assert.ErrorIs(t, err, payroll.ErrStatementNotFound)
}

func TestStore_ApprovePeriod(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, code := range []payroll.EmployeeCode{"E001", "E002", "E003"} {
		_, err := s.UpsertDraftStatement(ctx, code, march, payroll.Totals{}, nil)
		require.NoError(t, err)
	}
	_, err := s.UpsertDraftStatement(ctx, "E001", generic.NewMonth(2025, time.April), payroll.Totals{}, nil)
	require.NoError(t, err)
	_, err = s.ApproveStatement(ctx, "E003", march)
	require.NoError(t, err)

	n, err := s.ApprovePeriod(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.ListStatements(ctx, march)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, st := range all {
		assert.Equal(t, payroll.StatusApproved, st.Status)
	}

	april, err := s.GetStatement(ctx, "E001", generic.NewMonth(2025, time.April))
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusDraft, april.Status)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	// GIVEN: A transaction that upserts an auto component and then fails
	// WHEN: WithTx returns
	// THEN: The error is passed through and nothing was written

	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.SaveComponentType(ctx, payroll.PayComponentType{Name: payroll.AutoComponentType})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(src payroll.Source) error {
		if err := src.UpsertAutoComponent(ctx, "E001", payroll.SickLeaveComponent, march.Period(), 100); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	comps, err := s.GetActiveComponents(ctx, "E001", march.Start(), march.End())
	require.NoError(t, err)
	assert.Empty(t, comps)
}

// =============================================================================
// PIPELINE ON SQLITE
// =============================================================================

func TestStore_OrchestratorEndToEnd(t *testing.T) {
	// GIVEN: E001 with a 20M salary, one dependent and 4h of 1.5× overtime
	// WHEN: Calculating March, then approving and recalculating
	// THEN: Totals match the in-memory pipeline and approval freezes them

	ctx := context.Background()
	s := newTestStore(t)
	seedPolicies(t, ctx, s)
	seedEmployee(t, ctx, s, "E001", 20_000_000, 1)
	require.NoError(t, s.SaveMonthAttendance(ctx, payroll.AttendanceMonthSummary{EmployeeCode: "E001", Month: march,
		StandardDays: dec("20"), StandardHoursPerDay: dec("8"), TotalOvertimeHours: dec("4")}))
	require.NoError(t, s.SaveDailyAttendance(ctx, payroll.AttendanceDailyRecord{EmployeeCode: "E001", Date: day(29),
		OvertimeHours: dec("4"), DayType: &payroll.DayType{Code: "holiday", OvertimeRate: dec("1.5")}}))

	o := payroll.NewOrchestrator(s)
	stmt, err := o.Calculate(ctx, "E001", march)
	require.NoError(t, err)

	tot := stmt.Totals
	assert.Equal(t, int64(20_000_000), tot.BaseSalaryAmount)
	assert.Equal(t, int64(750_000), tot.OvertimeAmount)
	assert.Equal(t, int64(250_000), tot.OvertimePremium)
	assert.Equal(t, int64(20_750_000), tot.GrossIncome)
	assert.Equal(t, int64(20_000_000), tot.InsuranceBase)
	assert.Equal(t, int64(1_600_000), tot.InsuranceAmount)
	assert.Equal(t, int64(20_500_000), tot.AssessableIncome)
	assert.Equal(t, int64(3_500_000), tot.TaxableIncome)
	assert.Equal(t, int64(175_000), tot.TaxAmount)
	assert.Equal(t, int64(18_975_000), tot.NetSalary)
	assert.True(t, tot.OvertimeHours.Equal(dec("4")))

	again, err := o.Calculate(ctx, "E001", march)
	require.NoError(t, err)
	assert.Equal(t, stmt.ID, again.ID)
	assert.Equal(t, stmt.LineItems, again.LineItems)

	_, err = o.Approve(ctx, "E001", march)
	require.NoError(t, err)
	_, err = o.Calculate(ctx, "E001", march)
	assert.ErrorIs(t, err, payroll.ErrImmutableState)
}

func TestStore_CorrectedSickDayClearsAutoComponent(t *testing.T) {
	// GIVEN: A DRAFT computed with a sick day on the 24th
	// WHEN: The 24th is corrected to a full work day and March is recalculated
	// THEN: The sick payout is gone and the addition total returns to zero

	ctx := context.Background()
	s := newTestStore(t)
	seedPolicies(t, ctx, s)
	seedEmployee(t, ctx, s, "E001", 20_000_000, 0)
	require.NoError(t, s.SaveDailyAttendance(ctx,
		payroll.AttendanceDailyRecord{EmployeeCode: "E001", Date: day(24), LeaveType: payroll.LeaveSick}))

	o := payroll.NewOrchestrator(s)
	first, err := o.Calculate(ctx, "E001", march)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000), first.Totals.BaseSalaryAmount)
	assert.Equal(t, int64(750_000), first.Totals.TotalAddition)
	assert.Equal(t, int64(20_750_000), first.Totals.GrossIncome)

	require.NoError(t, s.SaveDailyAttendance(ctx, payroll.AttendanceDailyRecord{
		EmployeeCode: "E001", Date: day(24), WorkedHours: dec("8"), FullPayable: true}))

	second, err := o.Calculate(ctx, "E001", march)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(21_000_000), second.Totals.BaseSalaryAmount)
	assert.Equal(t, int64(0), second.Totals.TotalAddition)
	assert.Equal(t, int64(21_000_000), second.Totals.GrossIncome)
	for _, li := range second.LineItems {
		assert.NotEqual(t, payroll.SickLeaveComponent, li.Name)
	}

	comps, err := s.GetActiveComponents(ctx, "E001", march.Start(), march.End())
	require.NoError(t, err)
	assert.Empty(t, comps)
}

func TestStore_ZeroAutoComponentDeletesOnlyItsKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.SaveComponentType(ctx, payroll.PayComponentType{Name: payroll.AutoComponentType})
	require.NoError(t, err)

	require.NoError(t, s.UpsertAutoComponent(ctx, "E001", payroll.SickLeaveComponent, march.Period(), 750_000))
	require.NoError(t, s.UpsertAutoComponent(ctx, "E001", payroll.MaternityLeaveComponent, march.Period(), 900_000))

	require.NoError(t, s.UpsertAutoComponent(ctx, "E001", payroll.SickLeaveComponent, march.Period(), 0))
	require.NoError(t, s.UpsertAutoComponent(ctx, "E002", payroll.SickLeaveComponent, march.Period(), 0), "nothing to clear")

	comps, err := s.GetActiveComponents(ctx, "E001", march.Start(), march.End())
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, payroll.MaternityLeaveComponent, comps[0].Name)
}

func TestStore_BatchOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedPolicies(t, ctx, s)
	seedEmployee(t, ctx, s, "E001", 20_000_000, 0)
	seedEmployee(t, ctx, s, "E002", 15_000_000, 0)
	require.NoError(t, s.SaveEmployee(ctx, payroll.Employee{Code: "E003", Active: true}))

	res := payroll.NewBatch(payroll.NewOrchestrator(s), 3, nil).
		Run(ctx, march, []payroll.EmployeeCode{"E001", "E002", "E003"})

	assert.Equal(t, 2, res.SuccessCount())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, payroll.EmployeeCode("E003"), res.Failures[0].EmployeeCode)
	assert.ErrorIs(t, res.Err(), payroll.ErrBatchPartialFailure)

	all, err := s.ListStatements(ctx, march)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
