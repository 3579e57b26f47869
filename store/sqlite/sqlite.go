/*
Package sqlite provides a SQLite-backed implementation of payroll.Store.

PURPOSE:
  Persists the payroll inputs (employees, attendance, salary windows,
  components, statutory policies) and outputs (pay statements with their
  line items). The same schema ports to PostgreSQL with minor dialect
  changes.

KEY TABLES:
  employees:                Profile and dependents count
  attendance_daily:         One row per employee and day
  attendance_monthly:       Standard days/hours per employee and month
  pending_requests:         Unresolved leave/overtime requests
  salary_information:       Effective-dated base salaries
  pay_component_types:      Tax/insurance classification
  pay_components:           Ad hoc additions/deductions and auto payouts
  insurance_policies, tax_brackets, legal_deduction_policies
  pay_statements:           One row per (employee, period)
  pay_statement_items:      Ordered line-item snapshot of a statement

UNIQUENESS:
  - idx_statement_employee_period: at most one statement per key
  - idx_component_natural_key: auto payouts upsert by (employee, name, period)

CONDITIONAL WRITES:
  UpsertDraftStatement is a single INSERT ... ON CONFLICT DO UPDATE ...
  WHERE status = 'DRAFT'. Zero affected rows means the statement is
  APPROVED; nothing is written and *payroll.ImmutableStateError is
  returned. Auto components are an INSERT ... SELECT from the type table,
  so a missing type shows up as zero affected rows too.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction; methods reached through the transaction never lock.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.
  ":memory:" databases are pinned to a single connection so every query
  sees the same database.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  o := payroll.NewOrchestrator(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/source.go:       Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// Store implements payroll.Store using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ payroll.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		dependents_count INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS day_types (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		overtime_rate TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance_daily (
		employee_code TEXT NOT NULL,
		date TEXT NOT NULL,
		worked_hours TEXT NOT NULL DEFAULT '0',
		full_payable INTEGER NOT NULL DEFAULT 0,
		leave_type TEXT NOT NULL DEFAULT '',
		overtime_hours TEXT NOT NULL DEFAULT '0',
		day_type_code TEXT REFERENCES day_types(code),
		PRIMARY KEY (employee_code, date)
	);

	CREATE TABLE IF NOT EXISTS attendance_monthly (
		employee_code TEXT NOT NULL,
		period TEXT NOT NULL,
		standard_days TEXT NOT NULL,
		standard_hours_per_day TEXT NOT NULL,
		total_overtime_hours TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (employee_code, period)
	);

	CREATE TABLE IF NOT EXISTS pending_requests (
		id TEXT PRIMARY KEY,
		employee_code TEXT NOT NULL,
		kind TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pending_employee_kind
		ON pending_requests(employee_code, kind);

	CREATE TABLE IF NOT EXISTS salary_information (
		id TEXT PRIMARY KEY,
		employee_code TEXT NOT NULL,
		base_salary INTEGER NOT NULL,
		base_hourly_rate INTEGER NOT NULL DEFAULT 0,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		status TEXT NOT NULL DEFAULT 'ACTIVE'
	);

	CREATE INDEX IF NOT EXISTS idx_salary_employee_window
		ON salary_information(employee_code, effective_from, effective_to);

	CREATE TABLE IF NOT EXISTS pay_component_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		is_taxed INTEGER NOT NULL DEFAULT 0,
		is_insured INTEGER NOT NULL DEFAULT 0,
		tax_treatment_code TEXT NOT NULL DEFAULT '',
		policy_code TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS pay_components (
		id TEXT PRIMARY KEY,
		employee_code TEXT NOT NULL,
		type_id TEXT NOT NULL REFERENCES pay_component_types(id),
		name TEXT NOT NULL,
		value INTEGER,
		start_date TEXT NOT NULL,
		end_date TEXT,
		is_addition INTEGER NOT NULL DEFAULT 1,
		percent TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_component_natural_key
		ON pay_components(employee_code, name, start_date, end_date);

	CREATE TABLE IF NOT EXISTS insurance_policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		employee_percentage TEXT NOT NULL,
		company_percentage TEXT NOT NULL,
		max_amount INTEGER NOT NULL DEFAULT 0,
		effective_from TEXT NOT NULL,
		effective_to TEXT
	);

	CREATE TABLE IF NOT EXISTS tax_brackets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lower_bound INTEGER NOT NULL,
		upper_bound INTEGER,
		rate TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT
	);

	CREATE TABLE IF NOT EXISTS legal_deduction_policies (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		amount INTEGER NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT
	);

	CREATE TABLE IF NOT EXISTS pay_statements (
		id TEXT PRIMARY KEY,
		employee_code TEXT NOT NULL,
		period TEXT NOT NULL,
		status TEXT NOT NULL,
		base_salary_amount INTEGER NOT NULL,
		overtime_hours TEXT NOT NULL,
		overtime_amount INTEGER NOT NULL,
		overtime_premium INTEGER NOT NULL,
		total_addition INTEGER NOT NULL,
		total_deduction INTEGER NOT NULL,
		gross_income INTEGER NOT NULL,
		insurance_base INTEGER NOT NULL,
		insurance_amount INTEGER NOT NULL,
		employer_insurance_amount INTEGER NOT NULL,
		assessable_income INTEGER NOT NULL,
		taxable_income INTEGER NOT NULL,
		tax_amount INTEGER NOT NULL,
		net_salary INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_statement_employee_period
		ON pay_statements(employee_code, period);

	CREATE TABLE IF NOT EXISTS pay_statement_items (
		statement_id TEXT NOT NULL REFERENCES pay_statements(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		amount INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (statement_id, position)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (payroll.Store interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(payroll.Source) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(c *conn) error { return fn(c) })
}

// inTx runs fn in a new SQL transaction. The caller holds the write lock.
func (s *Store) inTx(ctx context.Context, fn func(*conn) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{q: sqlTx, now: s.now}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) conn() *conn {
	return &conn{q: s.db, now: s.now}
}

// =============================================================================
// SOURCE (payroll.Source interface) - Locked access outside a transaction
// =============================================================================

func (s *Store) GetEmployee(ctx context.Context, code payroll.EmployeeCode) (*payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetEmployee(ctx, code)
}

func (s *Store) GetDailyAttendance(ctx context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.AttendanceDailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetDailyAttendance(ctx, emp, start, end)
}

func (s *Store) GetMonthAttendance(ctx context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.AttendanceMonthSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetMonthAttendance(ctx, emp, month)
}

func (s *Store) HasPendingRequest(ctx context.Context, emp payroll.EmployeeCode, month generic.Month, kind payroll.RequestKind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().HasPendingRequest(ctx, emp, month, kind)
}

func (s *Store) GetActiveSalaryInformation(ctx context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.SalaryInformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetActiveSalaryInformation(ctx, emp, start, end)
}

func (s *Store) GetActiveComponents(ctx context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.PayComponent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetActiveComponents(ctx, emp, start, end)
}

func (s *Store) UpsertAutoComponent(ctx context.Context, emp payroll.EmployeeCode, name string, period generic.Period, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().UpsertAutoComponent(ctx, emp, name, period, amount)
}

func (s *Store) GetActiveInsurancePolicies(ctx context.Context, asOf generic.Date) ([]payroll.InsurancePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetActiveInsurancePolicies(ctx, asOf)
}

func (s *Store) GetActiveTaxBrackets(ctx context.Context, asOf generic.Date) ([]payroll.TaxBracket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetActiveTaxBrackets(ctx, asOf)
}

func (s *Store) GetActiveDeductionPolicies(ctx context.Context, asOf generic.Date) ([]payroll.LegalDeductionPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetActiveDeductionPolicies(ctx, asOf)
}

func (s *Store) GetStatement(ctx context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.PayStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetStatement(ctx, emp, month)
}

func (s *Store) ListStatements(ctx context.Context, month generic.Month) ([]payroll.PayStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListStatements(ctx, month)
}

// UpsertDraftStatement writes the statement row and its items in one
// transaction.
func (s *Store) UpsertDraftStatement(ctx context.Context, emp payroll.EmployeeCode, month generic.Month, totals payroll.Totals, items []payroll.LineItem) (*payroll.PayStatement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stmt *payroll.PayStatement
	err := s.inTx(ctx, func(c *conn) error {
		var err error
		stmt, err = c.UpsertDraftStatement(ctx, emp, month, totals, items)
		return err
	})
	return stmt, err
}

func (s *Store) ApproveStatement(ctx context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.PayStatement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().ApproveStatement(ctx, emp, month)
}

func (s *Store) ApprovePeriod(ctx context.Context, month generic.Month) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().ApprovePeriod(ctx, month)
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
