package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// TAX - Legal deductions and the progressive bracket ladder
// =============================================================================
//
//	taxable = assessable - employeeInsurance - personal - perDependent*dependents
//
// A non-positive taxable income means no tax; nothing is carried forward.
// Otherwise each bracket taxes the slice min(taxable, upper) - lower, and
// the sum over all brackets is rounded to money once.

type TaxInput struct {
	EmployeeCode      EmployeeCode
	AssessableIncome  int64
	EmployeeInsurance int64
	DependentsCount   int
	Deductions        []LegalDeductionPolicy // active as of the as-of date
	Brackets          []TaxBracket           // active as of the payroll date
}

type TaxResult struct {
	PersonalDeduction   int64
	DependentsDeduction int64
	TaxableIncome       int64
	Tax                 int64
	LineItems           []LineItem
}

type TaxCalculator struct{}

// Calculate resolves the employee's dependents, the deduction policies as of
// asOf and the brackets as of payrollDate, then computes the tax.
func (c TaxCalculator) Calculate(ctx context.Context, src Source, emp EmployeeCode, assessable, employeeInsurance int64, asOf, payrollDate generic.Date) (TaxResult, error) {
	// An employee without a profile is taxed with no dependents.
	dependents := 0
	employee, err := src.GetEmployee(ctx, emp)
	switch {
	case err == nil:
		dependents = employee.DependentsCount
	case !errors.Is(err, ErrEmployeeNotFound):
		return TaxResult{}, fmt.Errorf("load employee: %w", err)
	}
	deductions, err := src.GetActiveDeductionPolicies(ctx, asOf)
	if err != nil {
		return TaxResult{}, fmt.Errorf("load deduction policies: %w", err)
	}
	brackets, err := src.GetActiveTaxBrackets(ctx, payrollDate)
	if err != nil {
		return TaxResult{}, fmt.Errorf("load tax brackets: %w", err)
	}
	return c.Compute(TaxInput{
		EmployeeCode:      emp,
		AssessableIncome:  assessable,
		EmployeeInsurance: employeeInsurance,
		DependentsCount:   dependents,
		Deductions:        deductions,
		Brackets:          brackets,
	})
}

// Compute is the pure part of Calculate.
func (TaxCalculator) Compute(in TaxInput) (TaxResult, error) {
	personal := findDeduction(in.Deductions, PersonalDeduction)
	if personal == nil {
		return TaxResult{}, missing(in.EmployeeCode, "legal deduction %s", PersonalDeduction)
	}

	var result TaxResult
	result.PersonalDeduction = personal.Amount
	result.LineItems = append(result.LineItems, LineItem{
		Name:     "Personal deduction",
		Category: CategoryTaxDeduction,
		Amount:   personal.Amount,
	})

	if in.DependentsCount > 0 {
		perDependent := findDeduction(in.Deductions, DependentDeduction)
		if perDependent == nil {
			return TaxResult{}, missing(in.EmployeeCode, "legal deduction %s", DependentDeduction)
		}
		result.DependentsDeduction = perDependent.Amount * int64(in.DependentsCount)
		result.LineItems = append(result.LineItems, LineItem{
			Name:     "Dependents deduction",
			Category: CategoryTaxDeduction,
			Amount:   result.DependentsDeduction,
			Note:     fmt.Sprintf("dependents: %d", in.DependentsCount),
		})
	}

	taxable := in.AssessableIncome - in.EmployeeInsurance - result.PersonalDeduction - result.DependentsDeduction
	if taxable <= 0 {
		result.LineItems = append(result.LineItems, taxLine(0))
		return result, nil
	}
	if len(in.Brackets) == 0 {
		return TaxResult{}, missing(in.EmployeeCode, "tax brackets")
	}

	result.TaxableIncome = taxable
	result.Tax = bracketTax(taxable, in.Brackets)
	result.LineItems = append(result.LineItems, taxLine(result.Tax))
	return result, nil
}

// bracketTax walks the ladder in ascending lower-bound order.
func bracketTax(taxable int64, brackets []TaxBracket) int64 {
	ladder := make([]TaxBracket, len(brackets))
	copy(ladder, brackets)
	sort.SliceStable(ladder, func(i, j int) bool {
		return ladder[i].LowerBound < ladder[j].LowerBound
	})

	tax := decimal.Zero
	for _, b := range ladder {
		if taxable <= b.LowerBound {
			break
		}
		top := taxable
		if b.UpperBound != nil && *b.UpperBound < taxable {
			top = *b.UpperBound
		}
		if top <= b.LowerBound {
			continue
		}
		tax = tax.Add(generic.Money(top - b.LowerBound).Mul(b.Rate))
	}
	return generic.ToMoney(tax)
}

// findDeduction returns the policy whose code names the wanted deduction,
// preferring the most recent effective-from.
func findDeduction(policies []LegalDeductionPolicy, code DeductionCode) *LegalDeductionPolicy {
	var found *LegalDeductionPolicy
	for i := range policies {
		p := &policies[i]
		if !strings.Contains(string(p.Code), string(code)) {
			continue
		}
		if found == nil || p.Window.From.After(found.Window.From) {
			found = p
		}
	}
	return found
}

func taxLine(amount int64) LineItem {
	return LineItem{Name: "Personal income tax", Category: CategoryTax, Amount: amount}
}
