package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn runs every payroll.Source query against q without locking.
type conn struct {
	q   querier
	now func() time.Time
}

var _ payroll.Source = (*conn)(nil)

// =============================================================================
// EMPLOYEES & ATTENDANCE
// =============================================================================

func (c *conn) GetEmployee(ctx context.Context, code payroll.EmployeeCode) (*payroll.Employee, error) {
	var e payroll.Employee
	var active int
	err := c.q.QueryRowContext(ctx,
		`SELECT code, name, dependents_count, active FROM employees WHERE code = ?`, code,
	).Scan(&e.Code, &e.Name, &e.DependentsCount, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", payroll.ErrEmployeeNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	e.Active = active == 1
	return &e, nil
}

func (c *conn) GetDailyAttendance(ctx context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.AttendanceDailyRecord, error) {
	query := `
		SELECT a.employee_code, a.date, a.worked_hours, a.full_payable, a.leave_type,
		       a.overtime_hours, d.code, d.name, d.overtime_rate
		FROM attendance_daily a
		LEFT JOIN day_types d ON d.code = a.day_type_code
		WHERE a.employee_code = ? AND a.date >= ? AND a.date <= ?
		ORDER BY a.date ASC
	`
	rows, err := c.q.QueryContext(ctx, query, emp, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []payroll.AttendanceDailyRecord
	for rows.Next() {
		var (
			r                       payroll.AttendanceDailyRecord
			date, worked, ot, leave string
			full                    int
			dtCode, dtName, dtRate  sql.NullString
		)
		if err := rows.Scan(&r.EmployeeCode, &date, &worked, &full, &leave, &ot, &dtCode, &dtName, &dtRate); err != nil {
			return nil, err
		}
		r.Date = parseDate(date)
		r.WorkedHours = parseDecimal(worked)
		r.FullPayable = full == 1
		r.LeaveType = payroll.LeaveType(leave)
		r.OvertimeHours = parseDecimal(ot)
		if dtCode.Valid {
			r.DayType = &payroll.DayType{
				Code:         dtCode.String,
				Name:         dtName.String,
				OvertimeRate: parseDecimal(dtRate.String),
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (c *conn) GetMonthAttendance(ctx context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.AttendanceMonthSummary, error) {
	var stdDays, stdHours, otHours string
	err := c.q.QueryRowContext(ctx, `
		SELECT standard_days, standard_hours_per_day, total_overtime_hours
		FROM attendance_monthly WHERE employee_code = ? AND period = ?`,
		emp, month.String(),
	).Scan(&stdDays, &stdHours, &otHours)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get month attendance: %w", err)
	}
	return &payroll.AttendanceMonthSummary{
		EmployeeCode:        emp,
		Month:               month,
		StandardDays:        parseDecimal(stdDays),
		StandardHoursPerDay: parseDecimal(stdHours),
		TotalOvertimeHours:  parseDecimal(otHours),
	}, nil
}

func (c *conn) HasPendingRequest(ctx context.Context, emp payroll.EmployeeCode, month generic.Month, kind payroll.RequestKind) (bool, error) {
	var count int
	err := c.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pending_requests
		WHERE employee_code = ? AND kind = ? AND start_date <= ? AND end_date >= ?`,
		emp, kind, month.End().String(), month.Start().String(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check pending requests: %w", err)
	}
	return count > 0, nil
}

// =============================================================================
// COMPENSATION
// =============================================================================

func (c *conn) GetActiveSalaryInformation(ctx context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.SalaryInformation, error) {
	query := `
		SELECT id, employee_code, base_salary, base_hourly_rate, effective_from, effective_to, status
		FROM salary_information
		WHERE employee_code = ? AND status = ?
		  AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)
		ORDER BY effective_from ASC, id ASC
	`
	rows, err := c.q.QueryContext(ctx, query, emp, payroll.SalaryActive, end.String(), start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query salary information: %w", err)
	}
	defer rows.Close()

	var out []payroll.SalaryInformation
	for rows.Next() {
		var (
			si   payroll.SalaryInformation
			from string
			to   sql.NullString
		)
		if err := rows.Scan(&si.ID, &si.EmployeeCode, &si.BaseSalary, &si.BaseHourlyRate, &from, &to, &si.Status); err != nil {
			return nil, err
		}
		si.Window = parseWindow(from, to)
		out = append(out, si)
	}
	return out, rows.Err()
}

func (c *conn) GetActiveComponents(ctx context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.PayComponent, error) {
	query := `
		SELECT c.id, c.employee_code, c.name, c.value, c.start_date, c.end_date, c.is_addition, c.percent,
		       t.id, t.name, t.is_taxed, t.is_insured, t.tax_treatment_code, t.policy_code
		FROM pay_components c
		JOIN pay_component_types t ON t.id = c.type_id
		WHERE c.employee_code = ?
		  AND c.start_date <= ? AND (c.end_date IS NULL OR c.end_date >= ?)
		ORDER BY c.start_date ASC, c.name ASC, c.id ASC
	`
	rows, err := c.q.QueryContext(ctx, query, emp, end.String(), start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var out []payroll.PayComponent
	for rows.Next() {
		var (
			pc             payroll.PayComponent
			value          sql.NullInt64
			from           string
			to, percent    sql.NullString
			addition       int
			taxed, insured int
		)
		if err := rows.Scan(&pc.ID, &pc.EmployeeCode, &pc.Name, &value, &from, &to, &addition, &percent,
			&pc.Type.ID, &pc.Type.Name, &taxed, &insured, &pc.Type.TaxTreatmentCode, &pc.Type.PolicyCode); err != nil {
			return nil, err
		}
		if value.Valid {
			v := value.Int64
			pc.Value = &v
		}
		if percent.Valid {
			p := parseDecimal(percent.String)
			pc.Percent = &p
		}
		pc.Window = parseWindow(from, to)
		pc.IsAddition = addition == 1
		pc.Type.IsTaxed = taxed == 1
		pc.Type.IsInsured = insured == 1
		out = append(out, pc)
	}
	return out, rows.Err()
}

// UpsertAutoComponent inserts or overwrites the payout in one statement.
// A non-positive amount deletes the keyed row instead.
func (c *conn) UpsertAutoComponent(ctx context.Context, emp payroll.EmployeeCode, name string, period generic.Period, amount int64) error {
	if amount <= 0 {
		_, err := c.q.ExecContext(ctx, `
			DELETE FROM pay_components
			WHERE employee_code = ? AND name = ? AND start_date = ? AND end_date = ?`,
			emp, name, period.Start.String(), period.End.String())
		if err != nil {
			return fmt.Errorf("failed to clear auto component: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO pay_components (id, employee_code, type_id, name, value, start_date, end_date, is_addition)
		SELECT ?, ?, t.id, ?, ?, ?, ?, 1
		FROM pay_component_types t
		WHERE t.name = ?
		ON CONFLICT(employee_code, name, start_date, end_date)
		DO UPDATE SET value = excluded.value, type_id = excluded.type_id
	`
	res, err := c.q.ExecContext(ctx, query,
		uuid.NewString(), emp, name, amount, period.Start.String(), period.End.String(),
		payroll.AutoComponentType,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert auto component: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &payroll.MissingConfigurationError{
			EmployeeCode: emp,
			What:         "pay component type " + payroll.AutoComponentType,
		}
	}
	return nil
}

// =============================================================================
// POLICIES
// =============================================================================

const activeOn = `effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)`

func (c *conn) GetActiveInsurancePolicies(ctx context.Context, asOf generic.Date) ([]payroll.InsurancePolicy, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, name, employee_percentage, company_percentage, max_amount, effective_from, effective_to
		FROM insurance_policies WHERE `+activeOn+` ORDER BY name ASC, id ASC`,
		asOf.String(), asOf.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query insurance policies: %w", err)
	}
	defer rows.Close()

	var out []payroll.InsurancePolicy
	for rows.Next() {
		var (
			p             payroll.InsurancePolicy
			empPct, coPct string
			from          string
			to            sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &empPct, &coPct, &p.MaxAmount, &from, &to); err != nil {
			return nil, err
		}
		p.EmployeePercentage = parseDecimal(empPct)
		p.CompanyPercentage = parseDecimal(coPct)
		p.Window = parseWindow(from, to)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *conn) GetActiveTaxBrackets(ctx context.Context, asOf generic.Date) ([]payroll.TaxBracket, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, name, lower_bound, upper_bound, rate, effective_from, effective_to
		FROM tax_brackets WHERE `+activeOn+` ORDER BY lower_bound ASC`,
		asOf.String(), asOf.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query tax brackets: %w", err)
	}
	defer rows.Close()

	var out []payroll.TaxBracket
	for rows.Next() {
		var (
			b     payroll.TaxBracket
			upper sql.NullInt64
			rate  string
			from  string
			to    sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.LowerBound, &upper, &rate, &from, &to); err != nil {
			return nil, err
		}
		if upper.Valid {
			u := upper.Int64
			b.UpperBound = &u
		}
		b.Rate = parseDecimal(rate)
		b.Window = parseWindow(from, to)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (c *conn) GetActiveDeductionPolicies(ctx context.Context, asOf generic.Date) ([]payroll.LegalDeductionPolicy, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, code, amount, effective_from, effective_to
		FROM legal_deduction_policies WHERE `+activeOn+` ORDER BY effective_from DESC`,
		asOf.String(), asOf.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query deduction policies: %w", err)
	}
	defer rows.Close()

	var out []payroll.LegalDeductionPolicy
	for rows.Next() {
		var (
			d    payroll.LegalDeductionPolicy
			from string
			to   sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Code, &d.Amount, &from, &to); err != nil {
			return nil, err
		}
		d.Window = parseWindow(from, to)
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// PAY STATEMENTS
// =============================================================================

const statementColumns = `
	id, employee_code, period, status, base_salary_amount, overtime_hours, overtime_amount,
	overtime_premium, total_addition, total_deduction, gross_income, insurance_base,
	insurance_amount, employer_insurance_amount, assessable_income, taxable_income,
	tax_amount, net_salary, created_at, updated_at`

func (c *conn) GetStatement(ctx context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.PayStatement, error) {
	row := c.q.QueryRowContext(ctx,
		`SELECT `+statementColumns+` FROM pay_statements WHERE employee_code = ? AND period = ?`,
		emp, month.String())
	stmt, err := scanStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrStatementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}
	if stmt.LineItems, err = c.lineItems(ctx, stmt.ID); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (c *conn) ListStatements(ctx context.Context, month generic.Month) ([]payroll.PayStatement, error) {
	rows, err := c.q.QueryContext(ctx,
		`SELECT `+statementColumns+` FROM pay_statements WHERE period = ? ORDER BY employee_code ASC`,
		month.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query statements: %w", err)
	}

	var out []payroll.PayStatement
	for rows.Next() {
		stmt, err := scanStatement(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *stmt)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Items are loaded after the cursor is closed: a pinned single
	// connection cannot serve a nested query.
	for i := range out {
		if out[i].LineItems, err = c.lineItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpsertDraftStatement must run inside a transaction.
func (c *conn) UpsertDraftStatement(ctx context.Context, emp payroll.EmployeeCode, month generic.Month, t payroll.Totals, items []payroll.LineItem) (*payroll.PayStatement, error) {
	now := c.now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO pay_statements (` + statementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_code, period) DO UPDATE SET
			base_salary_amount = excluded.base_salary_amount,
			overtime_hours = excluded.overtime_hours,
			overtime_amount = excluded.overtime_amount,
			overtime_premium = excluded.overtime_premium,
			total_addition = excluded.total_addition,
			total_deduction = excluded.total_deduction,
			gross_income = excluded.gross_income,
			insurance_base = excluded.insurance_base,
			insurance_amount = excluded.insurance_amount,
			employer_insurance_amount = excluded.employer_insurance_amount,
			assessable_income = excluded.assessable_income,
			taxable_income = excluded.taxable_income,
			tax_amount = excluded.tax_amount,
			net_salary = excluded.net_salary,
			updated_at = excluded.updated_at
		WHERE pay_statements.status = 'DRAFT'
	`
	res, err := c.q.ExecContext(ctx, query,
		uuid.NewString(), emp, month.String(), payroll.StatusDraft.String(),
		t.BaseSalaryAmount, t.OvertimeHours.String(), t.OvertimeAmount, t.OvertimePremium,
		t.TotalAddition, t.TotalDeduction, t.GrossIncome, t.InsuranceBase,
		t.InsuranceAmount, t.EmployerInsuranceAmount, t.AssessableIncome, t.TaxableIncome,
		t.TaxAmount, t.NetSalary, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert statement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &payroll.ImmutableStateError{EmployeeCode: emp, Month: month}
	}

	var id string
	if err := c.q.QueryRowContext(ctx,
		`SELECT id FROM pay_statements WHERE employee_code = ? AND period = ?`, emp, month.String(),
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to read statement id: %w", err)
	}

	if _, err := c.q.ExecContext(ctx, `DELETE FROM pay_statement_items WHERE statement_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to clear line items: %w", err)
	}
	for i, li := range items {
		if _, err := c.q.ExecContext(ctx, `
			INSERT INTO pay_statement_items (statement_id, position, name, category, amount, note)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, li.Name, li.Category, li.Amount, li.Note,
		); err != nil {
			return nil, fmt.Errorf("failed to insert line item: %w", err)
		}
	}

	return c.GetStatement(ctx, emp, month)
}

func (c *conn) ApproveStatement(ctx context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.PayStatement, error) {
	res, err := c.q.ExecContext(ctx, `
		UPDATE pay_statements SET status = 'APPROVED', updated_at = ?
		WHERE employee_code = ? AND period = ? AND status = 'DRAFT'`,
		c.now().UTC().Format(time.RFC3339), emp, month.String())
	if err != nil {
		return nil, fmt.Errorf("failed to approve statement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either absent or already approved.
		if _, err := c.GetStatement(ctx, emp, month); err != nil {
			return nil, err
		}
		return nil, &payroll.ImmutableStateError{EmployeeCode: emp, Month: month}
	}
	return c.GetStatement(ctx, emp, month)
}

func (c *conn) ApprovePeriod(ctx context.Context, month generic.Month) (int, error) {
	res, err := c.q.ExecContext(ctx, `
		UPDATE pay_statements SET status = 'APPROVED', updated_at = ?
		WHERE period = ? AND status = 'DRAFT'`,
		c.now().UTC().Format(time.RFC3339), month.String())
	if err != nil {
		return 0, fmt.Errorf("failed to approve period: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (c *conn) lineItems(ctx context.Context, statementID string) ([]payroll.LineItem, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT name, category, amount, note FROM pay_statement_items
		WHERE statement_id = ? ORDER BY position ASC`, statementID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var items []payroll.LineItem
	for rows.Next() {
		var li payroll.LineItem
		if err := rows.Scan(&li.Name, &li.Category, &li.Amount, &li.Note); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStatement(row scanner) (*payroll.PayStatement, error) {
	var (
		s                    payroll.PayStatement
		period, status       string
		otHours              string
		createdAt, updatedAt string
	)
	t := &s.Totals
	if err := row.Scan(
		&s.ID, &s.EmployeeCode, &period, &status, &t.BaseSalaryAmount, &otHours, &t.OvertimeAmount,
		&t.OvertimePremium, &t.TotalAddition, &t.TotalDeduction, &t.GrossIncome, &t.InsuranceBase,
		&t.InsuranceAmount, &t.EmployerInsuranceAmount, &t.AssessableIncome, &t.TaxableIncome,
		&t.TaxAmount, &t.NetSalary, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if s.Month, err = generic.ParseMonth(period); err != nil {
		return nil, err
	}
	if s.Status, err = payroll.ParseStatus(status); err != nil {
		return nil, err
	}
	t.OvertimeHours = parseDecimal(otHours)
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &s, nil
}

// =============================================================================
// PARSING
// =============================================================================

func parseDate(s string) generic.Date {
	d, _ := generic.ParseDate(s)
	return d
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseWindow(from string, to sql.NullString) generic.Window {
	w := generic.Window{From: parseDate(from)}
	if to.Valid {
		end := parseDate(to.String)
		w.To = &end
	}
	return w
}
