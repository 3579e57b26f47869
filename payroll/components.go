package payroll

import (
	"context"
	"fmt"

	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// COMPONENTS - Ad hoc additions and deductions
// =============================================================================

// ComponentTotals splits the period's components by treatment. Deductions
// reduce net pay directly and take no part in tax or insurance math.
type ComponentTotals struct {
	TotalAddition      int64
	TotalDeduction     int64
	TaxableAddition    int64
	NonTaxableAddition int64
	InsuranceBaseExtra int64
	LineItems          []LineItem
}

type ComponentAggregator struct{}

// Aggregate loads the components active in period and sums them.
func (a ComponentAggregator) Aggregate(ctx context.Context, src CompensationSource, emp EmployeeCode, period generic.Period, baseSalaryAmount int64) (ComponentTotals, error) {
	components, err := src.GetActiveComponents(ctx, emp, period.Start, period.End)
	if err != nil {
		return ComponentTotals{}, fmt.Errorf("load components: %w", err)
	}
	return a.Summarize(components, period, baseSalaryAmount), nil
}

// Summarize is the pure part of Aggregate. Components outside period and
// components still awaiting a value are ignored.
func (ComponentAggregator) Summarize(components []PayComponent, period generic.Period, baseSalaryAmount int64) ComponentTotals {
	var t ComponentTotals
	for _, c := range components {
		if !c.Window.Overlaps(period) {
			continue
		}
		amount, ok := componentValue(c, baseSalaryAmount)
		if !ok {
			continue
		}

		if !c.IsAddition {
			t.TotalDeduction += amount
			t.LineItems = append(t.LineItems, LineItem{
				Name:     c.Name,
				Category: CategoryDeduction,
				Amount:   amount,
				Note:     c.Type.Name,
			})
			continue
		}

		t.TotalAddition += amount
		if c.Type.IsTaxed {
			t.TaxableAddition += amount
		} else {
			t.NonTaxableAddition += amount
		}
		if c.Type.IsInsured {
			t.InsuranceBaseExtra += amount
		}
		t.LineItems = append(t.LineItems, LineItem{
			Name:     c.Name,
			Category: CategoryAddition,
			Amount:   amount,
			Note:     treatmentNote(c.Type),
		})
	}
	return t
}

func componentValue(c PayComponent, baseSalaryAmount int64) (int64, bool) {
	switch {
	case c.Value != nil:
		return *c.Value, true
	case c.Percent != nil:
		return generic.ToMoney(generic.Money(baseSalaryAmount).Mul(*c.Percent)), true
	default:
		return 0, false
	}
}

func treatmentNote(t PayComponentType) string {
	taxed, insured := "not taxed", "not insured"
	if t.IsTaxed {
		taxed = "taxed"
	}
	if t.IsInsured {
		insured = "insured"
	}
	return fmt.Sprintf("%s (%s, %s)", t.Name, taxed, insured)
}
