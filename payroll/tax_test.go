package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func deductions(personal, dependent int64) []payroll.LegalDeductionPolicy {
	return []payroll.LegalDeductionPolicy{
		{Code: payroll.PersonalDeduction, Amount: personal, Window: openFrom(longAgo)},
		{Code: payroll.DependentDeduction, Amount: dependent, Window: openFrom(longAgo)},
	}
}

func TestTax_ProgressiveBrackets(t *testing.T) {
	// GIVEN: [0-5M @5%, 5M-10M @10%] and taxable income 10,000,000
	// WHEN: Computing tax
	// THEN: 5M×5% + 5M×10% = 750,000

	got, err := payroll.TaxCalculator{}.Compute(payroll.TaxInput{
		AssessableIncome: 21_000_000,
		Deductions:       deductions(11_000_000, 4_400_000),
		Brackets:         ladder()[:2],
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), got.TaxableIncome)
	assert.Equal(t, int64(750_000), got.Tax)
}

func TestTax_ZeroFloor(t *testing.T) {
	// GIVEN: Assessable income below insurance + personal deduction
	// WHEN: Computing tax
	// THEN: Taxable income and tax are 0, never negative; brackets are not needed

	got, err := payroll.TaxCalculator{}.Compute(payroll.TaxInput{
		AssessableIncome:  10_000_000,
		EmployeeInsurance: 800_000,
		DependentsCount:   2,
		Deductions:        deductions(11_000_000, 4_400_000),
	})

	require.NoError(t, err)
	assert.Zero(t, got.TaxableIncome)
	assert.Zero(t, got.Tax)
	assert.Equal(t, int64(8_800_000), got.DependentsDeduction)
}

func TestTax_DependentsReduceTaxableIncome(t *testing.T) {
	got, err := payroll.TaxCalculator{}.Compute(payroll.TaxInput{
		AssessableIncome:  30_000_000,
		EmployeeInsurance: 2_400_000,
		DependentsCount:   1,
		Deductions:        deductions(11_000_000, 4_400_000),
		Brackets:          ladder(),
	})

	require.NoError(t, err)
	// 30M - 2.4M - 11M - 4.4M = 12.2M → 250k + 500k + 2.2M×15%
	assert.Equal(t, int64(12_200_000), got.TaxableIncome)
	assert.Equal(t, int64(1_080_000), got.Tax)

	require.Len(t, got.LineItems, 3)
	assert.Equal(t, payroll.CategoryTaxDeduction, got.LineItems[1].Category)
	assert.Equal(t, "dependents: 1", got.LineItems[1].Note)
	assert.Equal(t, payroll.CategoryTax, got.LineItems[2].Category)
}

func TestTax_OpenTopBracketAndUnsortedLadder(t *testing.T) {
	// GIVEN: The ladder in reverse order with an unbounded top rung
	// WHEN: Taxable income is 20,000,000
	// THEN: 250k + 500k + 1.2M + 2M×20% = 2,350,000

	rungs := ladder()
	reversed := []payroll.TaxBracket{rungs[3], rungs[2], rungs[1], rungs[0]}

	got, err := payroll.TaxCalculator{}.Compute(payroll.TaxInput{
		AssessableIncome: 31_000_000,
		Deductions:       deductions(11_000_000, 0),
		Brackets:         reversed,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2_350_000), got.Tax)
}

func TestTax_RoundsOnceAtTheEnd(t *testing.T) {
	// GIVEN: Three rungs of width 10 at 5% and taxable income 30
	// WHEN: Computing tax
	// THEN: 0.5 + 0.5 + 0.5 = 1.5 rounds to 2 (per-bracket rounding would give 3)

	brackets := []payroll.TaxBracket{
		{LowerBound: 0, UpperBound: money(10), Rate: dec("0.05"), Window: openFrom(longAgo)},
		{LowerBound: 10, UpperBound: money(20), Rate: dec("0.05"), Window: openFrom(longAgo)},
		{LowerBound: 20, Rate: dec("0.05"), Window: openFrom(longAgo)},
	}

	got, err := payroll.TaxCalculator{}.Compute(payroll.TaxInput{
		AssessableIncome: 30,
		Deductions:       deductions(0, 0),
		Brackets:         brackets,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Tax)
}

func TestTax_MissingConfiguration(t *testing.T) {
	t.Run("personal deduction", func(t *testing.T) {
		_, err := payroll.TaxCalculator{}.Compute(payroll.TaxInput{
			EmployeeCode:     "E1",
			AssessableIncome: 30_000_000,
			Brackets:         ladder(),
		})
		var missing *payroll.MissingConfigurationError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, payroll.EmployeeCode("E1"), missing.EmployeeCode)
	})

	t.Run("dependent deduction with dependents", func(t *testing.T) {
		_, err := payroll.TaxCalculator{}.Compute(payroll.TaxInput{
			AssessableIncome: 30_000_000,
			DependentsCount:  1,
			Deductions:       deductions(11_000_000, 0)[:1],
			Brackets:         ladder(),
		})
		assert.ErrorIs(t, err, payroll.ErrMissingConfiguration)
	})

	t.Run("brackets when income is taxable", func(t *testing.T) {
		_, err := payroll.TaxCalculator{}.Compute(payroll.TaxInput{
			AssessableIncome: 30_000_000,
			Deductions:       deductions(11_000_000, 4_400_000),
		})
		assert.ErrorIs(t, err, payroll.ErrMissingConfiguration)
	})
}
