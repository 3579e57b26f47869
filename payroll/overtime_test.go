package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func TestOvertime_SplitsNormalAndPremium(t *testing.T) {
	// GIVEN: 20,000,000 base, 20 standard days, 4 hours at 1.5×
	// WHEN: Pricing overtime
	// THEN: hourly = 125,000, normal = 500,000, premium = 250,000

	res, err := payroll.OvertimeCalculator{}.Calculate(
		[]payroll.AttendanceDailyRecord{overtimeDay("E1", 8, "4", "1.5")},
		[]payroll.SalaryInformation{salary("E1", 20_000_000, openFrom(longAgo))},
		summary("E1", "20"),
	)

	require.NoError(t, err)
	assert.Equal(t, int64(500_000), res.Normal)
	assert.Equal(t, int64(250_000), res.Premium)
	assert.Equal(t, int64(750_000), res.Total())
	assert.True(t, dec("4").Equal(res.Hours))
}

func TestOvertime_UsesSalaryInEffectOnTheDay(t *testing.T) {
	// GIVEN: 20,000,000 until the 15th, 40,000,000 from the 16th,
	//        2 hours at 1.5× on the 10th and on the 20th
	// WHEN: Pricing overtime
	// THEN: The 10th uses 125,000/h, the 20th uses 250,000/h

	res, err := payroll.OvertimeCalculator{}.Calculate(
		[]payroll.AttendanceDailyRecord{
			overtimeDay("E1", 10, "2", "1.5"),
			overtimeDay("E1", 20, "2", "1.5"),
		},
		[]payroll.SalaryInformation{
			salary("E1", 20_000_000, window(longAgo, day(15))),
			salary("E1", 40_000_000, openFrom(day(16))),
		},
		summary("E1", "20"),
	)

	require.NoError(t, err)
	assert.Equal(t, int64(750_000), res.Normal)
	assert.Equal(t, int64(375_000), res.Premium)
}

func TestOvertime_PremiumFlooredAtZero(t *testing.T) {
	// GIVEN: Overtime on a 0.8× day and on a day with no day type
	// WHEN: Pricing overtime
	// THEN: Only the normal portion is paid

	noType := overtimeDay("E1", 9, "2", "1")
	noType.DayType = nil

	res, err := payroll.OvertimeCalculator{}.Calculate(
		[]payroll.AttendanceDailyRecord{overtimeDay("E1", 8, "2", "0.8"), noType},
		[]payroll.SalaryInformation{salary("E1", 20_000_000, openFrom(longAgo))},
		summary("E1", "20"),
	)

	require.NoError(t, err)
	assert.Equal(t, int64(500_000), res.Normal)
	assert.Zero(t, res.Premium)
}

func TestOvertime_HourlyRateRoundsToMoney(t *testing.T) {
	// GIVEN: 10,000,000 base over 22 standard days (56,818.18/h → 56,818)
	// WHEN: 1.5 hours at 1.5×
	// THEN: normal = 85,227, premium = round(42,613.5) = 42,614

	res, err := payroll.OvertimeCalculator{}.Calculate(
		[]payroll.AttendanceDailyRecord{overtimeDay("E1", 8, "1.5", "1.5")},
		[]payroll.SalaryInformation{salary("E1", 10_000_000, openFrom(longAgo))},
		summary("E1", "22"),
	)

	require.NoError(t, err)
	assert.Equal(t, int64(85_227), res.Normal)
	assert.Equal(t, int64(42_614), res.Premium)
}

func TestOvertime_DayWithoutSalaryWindowIsNotPaid(t *testing.T) {
	res, err := payroll.OvertimeCalculator{}.Calculate(
		[]payroll.AttendanceDailyRecord{overtimeDay("E1", 3, "4", "2")},
		[]payroll.SalaryInformation{salary("E1", 20_000_000, openFrom(day(10)))},
		summary("E1", "20"),
	)

	require.NoError(t, err)
	assert.Zero(t, res.Total())
	assert.Empty(t, res.LineItems())
}
