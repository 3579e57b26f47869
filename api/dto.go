/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the payroll model from the external API contract: money is a plain
  integer in VND, dates are ISO strings, statuses are their names.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Calculation:
    CalculateRequest, CalculateResponse

  Statements:
    PayStatementDTO, TotalsDTO, LineItemDTO, ApprovePeriodResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry `validate` tags checked by validate() in
  validation.go. Semantic checks (month format) stay in handlers.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CalculateRequest is the body of POST /api/payroll/calculate.
type CalculateRequest struct {
	Month         string   `json:"month" validate:"required"` // YYYY-MM
	EmployeeCodes []string `json:"employee_codes" validate:"required,min=1,dive,required"`
}

// CalculateResponse reports a batch run.
type CalculateResponse struct {
	Month        string            `json:"month"`
	Total        int               `json:"total"`
	SuccessCount int               `json:"success_count"`
	Statements   []PayStatementDTO `json:"statements"`
	Failures     []string          `json:"failures"` // "CODE: message"
}

// PayStatementDTO represents a pay statement in API responses.
type PayStatementDTO struct {
	ID           string        `json:"id"`
	EmployeeCode string        `json:"employee_code"`
	Period       string        `json:"period"`
	Status       string        `json:"status"`
	Totals       TotalsDTO     `json:"totals"`
	LineItems    []LineItemDTO `json:"line_items"`
	CreatedAt    string        `json:"created_at,omitempty"`
	UpdatedAt    string        `json:"updated_at,omitempty"`
}

// TotalsDTO holds the statement totals. Amounts are integer VND.
type TotalsDTO struct {
	BaseSalaryAmount        int64  `json:"base_salary_amount"`
	OvertimeHours           string `json:"overtime_hours"`
	OvertimeAmount          int64  `json:"overtime_amount"`
	OvertimePremium         int64  `json:"overtime_premium"`
	TotalAddition           int64  `json:"total_addition"`
	TotalDeduction          int64  `json:"total_deduction"`
	GrossIncome             int64  `json:"gross_income"`
	InsuranceBase           int64  `json:"insurance_base"`
	InsuranceAmount         int64  `json:"insurance_amount"`
	EmployerInsuranceAmount int64  `json:"employer_insurance_amount"`
	AssessableIncome        int64  `json:"assessable_income"`
	TaxableIncome           int64  `json:"taxable_income"`
	TaxAmount               int64  `json:"tax_amount"`
	NetSalary               int64  `json:"net_salary"`
}

type LineItemDTO struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Note     string `json:"note,omitempty"`
}

// ApprovePeriodResponse is returned by POST /api/paystatements/approve.
type ApprovePeriodResponse struct {
	Month    string `json:"month"`
	Approved int    `json:"approved"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	Month      string `json:"month,omitempty"` // defaults to the previous month
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPayStatementDTO(s *payroll.PayStatement) PayStatementDTO {
	t := s.Totals
	dto := PayStatementDTO{
		ID:           s.ID,
		EmployeeCode: string(s.EmployeeCode),
		Period:       s.Month.String(),
		Status:       s.Status.String(),
		Totals: TotalsDTO{
			BaseSalaryAmount:        t.BaseSalaryAmount,
			OvertimeHours:           t.OvertimeHours.String(),
			OvertimeAmount:          t.OvertimeAmount,
			OvertimePremium:         t.OvertimePremium,
			TotalAddition:           t.TotalAddition,
			TotalDeduction:          t.TotalDeduction,
			GrossIncome:             t.GrossIncome,
			InsuranceBase:           t.InsuranceBase,
			InsuranceAmount:         t.InsuranceAmount,
			EmployerInsuranceAmount: t.EmployerInsuranceAmount,
			AssessableIncome:        t.AssessableIncome,
			TaxableIncome:           t.TaxableIncome,
			TaxAmount:               t.TaxAmount,
			NetSalary:               t.NetSalary,
		},
		LineItems: make([]LineItemDTO, len(s.LineItems)),
	}
	for i, li := range s.LineItems {
		dto.LineItems[i] = LineItemDTO{
			Name:     li.Name,
			Category: string(li.Category),
			Amount:   li.Amount,
			Note:     li.Note,
		}
	}
	if !s.CreatedAt.IsZero() {
		dto.CreatedAt = s.CreatedAt.Format(time.RFC3339)
	}
	if !s.UpdatedAt.IsZero() {
		dto.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toPayStatementDTOs(stmts []payroll.PayStatement) []PayStatementDTO {
	dtos := make([]PayStatementDTO, len(stmts))
	for i := range stmts {
		dtos[i] = toPayStatementDTO(&stmts[i])
	}
	return dtos
}
