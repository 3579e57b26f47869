package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// REFERENCE DATA - Writes used by importers, fixtures and tests
// =============================================================================

// Reset deletes every row from every table.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"pay_statement_items", "pay_statements", "pay_components", "pay_component_types",
		"salary_information", "pending_requests", "attendance_monthly", "attendance_daily",
		"day_types", "insurance_policies", "tax_brackets", "legal_deduction_policies", "employees",
	}
	return s.inTx(ctx, func(c *conn) error {
		for _, t := range tables {
			if _, err := c.q.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("failed to clear %s: %w", t, err)
			}
		}
		return nil
	})
}

// SaveEmployee inserts or replaces an employee profile.
func (s *Store) SaveEmployee(ctx context.Context, e payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (code, name, dependents_count, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			dependents_count = excluded.dependents_count,
			active = excluded.active`,
		e.Code, e.Name, e.DependentsCount, boolInt(e.Active))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// SaveDayType inserts or replaces a day classification.
func (s *Store) SaveDayType(ctx context.Context, dt payroll.DayType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveDayType(ctx, s.db, dt)
}

func (s *Store) saveDayType(ctx context.Context, q querier, dt payroll.DayType) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO day_types (code, name, overtime_rate) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET name = excluded.name, overtime_rate = excluded.overtime_rate`,
		dt.Code, dt.Name, dt.OvertimeRate.String())
	if err != nil {
		return fmt.Errorf("failed to save day type: %w", err)
	}
	return nil
}

// SaveDailyAttendance writes daily records, replacing any record for the
// same employee and date. Referenced day types are saved alongside.
func (s *Store) SaveDailyAttendance(ctx context.Context, records ...payroll.AttendanceDailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(c *conn) error {
		for _, r := range records {
			var dayType string
			if r.DayType != nil {
				if err := s.saveDayType(ctx, c.q, *r.DayType); err != nil {
					return err
				}
				dayType = r.DayType.Code
			}
			_, err := c.q.ExecContext(ctx, `
				INSERT OR REPLACE INTO attendance_daily
					(employee_code, date, worked_hours, full_payable, leave_type, overtime_hours, day_type_code)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.EmployeeCode, r.Date.String(), r.WorkedHours.String(), boolInt(r.FullPayable),
				r.LeaveType, r.OvertimeHours.String(), nullString(dayType))
			if err != nil {
				return fmt.Errorf("failed to save attendance for %s on %s: %w", r.EmployeeCode, r.Date, err)
			}
		}
		return nil
	})
}

// SaveMonthAttendance inserts or replaces a monthly attendance summary.
func (s *Store) SaveMonthAttendance(ctx context.Context, m payroll.AttendanceMonthSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO attendance_monthly
			(employee_code, period, standard_days, standard_hours_per_day, total_overtime_hours)
		VALUES (?, ?, ?, ?, ?)`,
		m.EmployeeCode, m.Month.String(), m.StandardDays.String(),
		m.StandardHoursPerDay.String(), m.TotalOvertimeHours.String())
	if err != nil {
		return fmt.Errorf("failed to save month attendance: %w", err)
	}
	return nil
}

// SavePendingRequest records an unresolved leave or overtime request.
func (s *Store) SavePendingRequest(ctx context.Context, r payroll.PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_requests (id, employee_code, kind, start_date, end_date)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.EmployeeCode, r.Kind, r.Period.Start.String(), r.Period.End.String())
	if err != nil {
		return fmt.Errorf("failed to save pending request: %w", err)
	}
	return nil
}

// ResolvePendingRequests removes every pending request of the employee.
func (s *Store) ResolvePendingRequests(ctx context.Context, emp payroll.EmployeeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_requests WHERE employee_code = ?`, emp); err != nil {
		return fmt.Errorf("failed to resolve pending requests: %w", err)
	}
	return nil
}

// SaveSalaryInformation inserts a salary window. Status defaults to ACTIVE.
func (s *Store) SaveSalaryInformation(ctx context.Context, si payroll.SalaryInformation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if si.ID == "" {
		si.ID = uuid.NewString()
	}
	if si.Status == "" {
		si.Status = payroll.SalaryActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO salary_information
			(id, employee_code, base_salary, base_hourly_rate, effective_from, effective_to, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		si.ID, si.EmployeeCode, si.BaseSalary, si.BaseHourlyRate,
		si.Window.From.String(), nullDate(si.Window.To), si.Status)
	if err != nil {
		return fmt.Errorf("failed to save salary information: %w", err)
	}
	return nil
}

// SaveComponentType inserts or updates a component type keyed by name and
// returns the stored ID.
func (s *Store) SaveComponentType(ctx context.Context, ct payroll.PayComponentType) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ct.ID == "" {
		ct.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pay_component_types (id, name, is_taxed, is_insured, tax_treatment_code, policy_code)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			is_taxed = excluded.is_taxed,
			is_insured = excluded.is_insured,
			tax_treatment_code = excluded.tax_treatment_code,
			policy_code = excluded.policy_code`,
		ct.ID, ct.Name, boolInt(ct.IsTaxed), boolInt(ct.IsInsured), ct.TaxTreatmentCode, ct.PolicyCode)
	if err != nil {
		return "", fmt.Errorf("failed to save component type: %w", err)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM pay_component_types WHERE name = ?`, ct.Name).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to read component type: %w", err)
	}
	return id, nil
}

// SaveComponent inserts a pay component. The type is resolved by ID, or by
// name when the ID is empty.
func (s *Store) SaveComponent(ctx context.Context, pc payroll.PayComponent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pc.ID == "" {
		pc.ID = uuid.NewString()
	}
	typeID := pc.Type.ID
	if typeID == "" {
		if err := s.db.QueryRowContext(ctx,
			`SELECT id FROM pay_component_types WHERE name = ?`, pc.Type.Name,
		).Scan(&typeID); err != nil {
			return fmt.Errorf("unknown component type %q: %w", pc.Type.Name, err)
		}
	}

	var percent *string
	if pc.Percent != nil {
		p := pc.Percent.String()
		percent = &p
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pay_components
			(id, employee_code, type_id, name, value, start_date, end_date, is_addition, percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pc.ID, pc.EmployeeCode, typeID, pc.Name, nullInt(pc.Value),
		pc.Window.From.String(), nullDate(pc.Window.To), boolInt(pc.IsAddition), percent)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("component %q already exists for %s from %s", pc.Name, pc.EmployeeCode, pc.Window.From)
		}
		return fmt.Errorf("failed to save component: %w", err)
	}
	return nil
}

// SaveInsurancePolicy inserts an insurance policy.
func (s *Store) SaveInsurancePolicy(ctx context.Context, p payroll.InsurancePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insurance_policies
			(id, name, employee_percentage, company_percentage, max_amount, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.EmployeePercentage.String(), p.CompanyPercentage.String(), p.MaxAmount,
		p.Window.From.String(), nullDate(p.Window.To))
	if err != nil {
		return fmt.Errorf("failed to save insurance policy: %w", err)
	}
	return nil
}

// SaveTaxBracket inserts a tax bracket. A nil upper bound is open-ended.
func (s *Store) SaveTaxBracket(ctx context.Context, b payroll.TaxBracket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tax_brackets (id, name, lower_bound, upper_bound, rate, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.LowerBound, nullInt(b.UpperBound), b.Rate.String(),
		b.Window.From.String(), nullDate(b.Window.To))
	if err != nil {
		return fmt.Errorf("failed to save tax bracket: %w", err)
	}
	return nil
}

// SaveDeductionPolicy inserts a legal deduction policy.
func (s *Store) SaveDeductionPolicy(ctx context.Context, d payroll.LegalDeductionPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO legal_deduction_policies (id, code, amount, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Code, d.Amount, d.Window.From.String(), nullDate(d.Window.To))
	if err != nil {
		return fmt.Errorf("failed to save deduction policy: %w", err)
	}
	return nil
}
