package payroll

import (
	"context"
	"fmt"

	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// INSURANCE - Employee and employer contributions
// =============================================================================

type InsuranceResult struct {
	Base      int64
	Employee  int64
	Employer  int64
	LineItems []LineItem
}

type InsuranceCalculator struct{}

// Calculate applies every policy active on asOf to base.
func (c InsuranceCalculator) Calculate(ctx context.Context, src PolicySource, base int64, asOf generic.Date) (InsuranceResult, error) {
	policies, err := src.GetActiveInsurancePolicies(ctx, asOf)
	if err != nil {
		return InsuranceResult{}, fmt.Errorf("load insurance policies: %w", err)
	}
	return c.Apply(base, asOf, policies), nil
}

// Apply computes min(base, cap) * percentage per policy. Each contribution
// is rounded to money on its own so the line items add up to the totals.
func (InsuranceCalculator) Apply(base int64, asOf generic.Date, policies []InsurancePolicy) InsuranceResult {
	result := InsuranceResult{Base: base}
	for _, p := range policies {
		if !p.Window.Covers(asOf) {
			continue
		}
		capped := base
		if p.MaxAmount > 0 {
			capped = generic.MinMoney(base, p.MaxAmount)
		}
		employee := generic.ToMoney(generic.Money(capped).Mul(p.EmployeePercentage))
		employer := generic.ToMoney(generic.Money(capped).Mul(p.CompanyPercentage))

		result.Employee += employee
		result.Employer += employer
		result.LineItems = append(result.LineItems, LineItem{
			Name:     p.Name,
			Category: CategoryInsurance,
			Amount:   employee,
			Note:     fmt.Sprintf("base %d, employer share %d", capped, employer),
		})
	}
	return result
}
