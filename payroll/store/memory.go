// Package store provides an in-memory payroll.Store.
package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu  sync.RWMutex
	t   *tables
	now func() time.Time
}

type monthKey struct {
	Employee payroll.EmployeeCode
	Month    generic.Month
}

type componentKey struct {
	Employee payroll.EmployeeCode
	Name     string
	Start    string
	End      string
}

type tables struct {
	employees      map[payroll.EmployeeCode]payroll.Employee
	daily          map[payroll.EmployeeCode][]payroll.AttendanceDailyRecord
	summaries      map[monthKey]payroll.AttendanceMonthSummary
	pending        []payroll.PendingRequest
	salaries       []payroll.SalaryInformation
	componentTypes map[string]payroll.PayComponentType
	components     []payroll.PayComponent
	insurance      []payroll.InsurancePolicy
	brackets       []payroll.TaxBracket
	deductions     []payroll.LegalDeductionPolicy
	statements     map[monthKey]payroll.PayStatement
}

func newTables() *tables {
	return &tables{
		employees:      make(map[payroll.EmployeeCode]payroll.Employee),
		daily:          make(map[payroll.EmployeeCode][]payroll.AttendanceDailyRecord),
		summaries:      make(map[monthKey]payroll.AttendanceMonthSummary),
		componentTypes: make(map[string]payroll.PayComponentType),
		statements:     make(map[monthKey]payroll.PayStatement),
	}
}

func NewMemory() *Memory {
	return &Memory{t: newTables(), now: time.Now}
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback on error
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// Transactions are serialized.
func (m *Memory) WithTx(ctx context.Context, fn func(payroll.Source) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.t.clone()
	if err := fn(&view{t: m.t, now: m.now}); err != nil {
		m.t = snapshot
		return err
	}
	return nil
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.employees {
		c.employees[k] = v
	}
	for k, v := range t.daily {
		c.daily[k] = append([]payroll.AttendanceDailyRecord(nil), v...)
	}
	for k, v := range t.summaries {
		c.summaries[k] = v
	}
	for k, v := range t.componentTypes {
		c.componentTypes[k] = v
	}
	for k, v := range t.statements {
		v.LineItems = append([]payroll.LineItem(nil), v.LineItems...)
		c.statements[k] = v
	}
	c.pending = append(c.pending, t.pending...)
	c.salaries = append(c.salaries, t.salaries...)
	c.components = append(c.components, t.components...)
	c.insurance = append(c.insurance, t.insurance...)
	c.brackets = append(c.brackets, t.brackets...)
	c.deductions = append(c.deductions, t.deductions...)
	return c
}

// view is the Source handed to WithTx. The caller already holds the lock.
type view struct {
	t   *tables
	now func() time.Time
}

func (v *view) GetEmployee(_ context.Context, code payroll.EmployeeCode) (*payroll.Employee, error) {
	return v.t.getEmployee(code)
}

func (v *view) GetDailyAttendance(_ context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.AttendanceDailyRecord, error) {
	return v.t.getDailyAttendance(emp, start, end), nil
}

func (v *view) GetMonthAttendance(_ context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.AttendanceMonthSummary, error) {
	return v.t.getMonthAttendance(emp, month), nil
}

func (v *view) HasPendingRequest(_ context.Context, emp payroll.EmployeeCode, month generic.Month, kind payroll.RequestKind) (bool, error) {
	return v.t.hasPendingRequest(emp, month, kind), nil
}

func (v *view) GetActiveSalaryInformation(_ context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.SalaryInformation, error) {
	return v.t.getActiveSalaryInformation(emp, start, end), nil
}

func (v *view) GetActiveComponents(_ context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.PayComponent, error) {
	return v.t.getActiveComponents(emp, start, end), nil
}

func (v *view) UpsertAutoComponent(_ context.Context, emp payroll.EmployeeCode, name string, period generic.Period, amount int64) error {
	return v.t.upsertAutoComponent(emp, name, period, amount)
}

func (v *view) GetActiveInsurancePolicies(_ context.Context, asOf generic.Date) ([]payroll.InsurancePolicy, error) {
	return activeOn(v.t.insurance, asOf, func(p payroll.InsurancePolicy) generic.Window { return p.Window }), nil
}

func (v *view) GetActiveTaxBrackets(_ context.Context, asOf generic.Date) ([]payroll.TaxBracket, error) {
	return activeOn(v.t.brackets, asOf, func(b payroll.TaxBracket) generic.Window { return b.Window }), nil
}

func (v *view) GetActiveDeductionPolicies(_ context.Context, asOf generic.Date) ([]payroll.LegalDeductionPolicy, error) {
	return activeOn(v.t.deductions, asOf, func(d payroll.LegalDeductionPolicy) generic.Window { return d.Window }), nil
}

func (v *view) GetStatement(_ context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.PayStatement, error) {
	return v.t.getStatement(emp, month)
}

func (v *view) ListStatements(_ context.Context, month generic.Month) ([]payroll.PayStatement, error) {
	return v.t.listStatements(month), nil
}

func (v *view) UpsertDraftStatement(_ context.Context, emp payroll.EmployeeCode, month generic.Month, totals payroll.Totals, items []payroll.LineItem) (*payroll.PayStatement, error) {
	return v.t.upsertDraftStatement(emp, month, totals, items, v.now())
}

func (v *view) ApproveStatement(_ context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.PayStatement, error) {
	return v.t.approveStatement(emp, month, v.now())
}

func (v *view) ApprovePeriod(_ context.Context, month generic.Month) (int, error) {
	return v.t.approvePeriod(month, v.now()), nil
}

// =============================================================================
// SOURCE - Locked access outside a transaction
// =============================================================================

func (m *Memory) read() *view {
	return &view{t: m.t, now: m.now}
}

func (m *Memory) GetEmployee(ctx context.Context, code payroll.EmployeeCode) (*payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetEmployee(ctx, code)
}

func (m *Memory) GetDailyAttendance(ctx context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.AttendanceDailyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetDailyAttendance(ctx, emp, start, end)
}

func (m *Memory) GetMonthAttendance(ctx context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.AttendanceMonthSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetMonthAttendance(ctx, emp, month)
}

func (m *Memory) HasPendingRequest(ctx context.Context, emp payroll.EmployeeCode, month generic.Month, kind payroll.RequestKind) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().HasPendingRequest(ctx, emp, month, kind)
}

func (m *Memory) GetActiveSalaryInformation(ctx context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.SalaryInformation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetActiveSalaryInformation(ctx, emp, start, end)
}

func (m *Memory) GetActiveComponents(ctx context.Context, emp payroll.EmployeeCode, start, end generic.Date) ([]payroll.PayComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetActiveComponents(ctx, emp, start, end)
}

func (m *Memory) UpsertAutoComponent(ctx context.Context, emp payroll.EmployeeCode, name string, period generic.Period, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().UpsertAutoComponent(ctx, emp, name, period, amount)
}

func (m *Memory) GetActiveInsurancePolicies(ctx context.Context, asOf generic.Date) ([]payroll.InsurancePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetActiveInsurancePolicies(ctx, asOf)
}

func (m *Memory) GetActiveTaxBrackets(ctx context.Context, asOf generic.Date) ([]payroll.TaxBracket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetActiveTaxBrackets(ctx, asOf)
}

func (m *Memory) GetActiveDeductionPolicies(ctx context.Context, asOf generic.Date) ([]payroll.LegalDeductionPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetActiveDeductionPolicies(ctx, asOf)
}

func (m *Memory) GetStatement(ctx context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.PayStatement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetStatement(ctx, emp, month)
}

func (m *Memory) ListStatements(ctx context.Context, month generic.Month) ([]payroll.PayStatement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ListStatements(ctx, month)
}

func (m *Memory) UpsertDraftStatement(ctx context.Context, emp payroll.EmployeeCode, month generic.Month, totals payroll.Totals, items []payroll.LineItem) (*payroll.PayStatement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().UpsertDraftStatement(ctx, emp, month, totals, items)
}

func (m *Memory) ApproveStatement(ctx context.Context, emp payroll.EmployeeCode, month generic.Month) (*payroll.PayStatement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().ApproveStatement(ctx, emp, month)
}

func (m *Memory) ApprovePeriod(ctx context.Context, month generic.Month) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().ApprovePeriod(ctx, month)
}

// =============================================================================
// SEEDING - Reference data (not part of payroll.Source)
// =============================================================================

func (m *Memory) SaveEmployee(e payroll.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t.employees[e.Code] = e
}

func (m *Memory) SaveDailyAttendance(records ...payroll.AttendanceDailyRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.t.daily[r.EmployeeCode] = append(m.t.daily[r.EmployeeCode], r)
	}
}

func (m *Memory) SaveMonthAttendance(s payroll.AttendanceMonthSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t.summaries[monthKey{Employee: s.EmployeeCode, Month: s.Month}] = s
}

func (m *Memory) SavePendingRequest(r payroll.PendingRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&r.ID)
	m.t.pending = append(m.t.pending, r)
}

func (m *Memory) SaveSalaryInformation(s payroll.SalaryInformation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Status == "" {
		s.Status = payroll.SalaryActive
	}
	ensureID(&s.ID)
	m.t.salaries = append(m.t.salaries, s)
}

func (m *Memory) SaveComponentType(ct payroll.PayComponentType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&ct.ID)
	m.t.componentTypes[ct.Name] = ct
}

func (m *Memory) SaveComponent(c payroll.PayComponent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&c.ID)
	m.t.components = append(m.t.components, c)
}

func (m *Memory) SaveInsurancePolicy(p payroll.InsurancePolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&p.ID)
	m.t.insurance = append(m.t.insurance, p)
}

func (m *Memory) SaveTaxBracket(b payroll.TaxBracket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&b.ID)
	m.t.brackets = append(m.t.brackets, b)
}

func (m *Memory) SaveDeductionPolicy(d payroll.LegalDeductionPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&d.ID)
	m.t.deductions = append(m.t.deductions, d)
}

// ResolvePendingRequests drops every pending request of emp.
func (m *Memory) ResolvePendingRequests(emp payroll.EmployeeCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.t.pending[:0]
	for _, r := range m.t.pending {
		if r.EmployeeCode != emp {
			kept = append(kept, r)
		}
	}
	m.t.pending = kept
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// =============================================================================
// TABLE OPERATIONS - Lock-free, callers hold m.mu
// =============================================================================

func (t *tables) getEmployee(code payroll.EmployeeCode) (*payroll.Employee, error) {
	e, ok := t.employees[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", payroll.ErrEmployeeNotFound, code)
	}
	return &e, nil
}

func (t *tables) getDailyAttendance(emp payroll.EmployeeCode, start, end generic.Date) []payroll.AttendanceDailyRecord {
	period := generic.Period{Start: start, End: end}
	var out []payroll.AttendanceDailyRecord
	for _, r := range t.daily[emp] {
		if period.Contains(r.Date) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (t *tables) getMonthAttendance(emp payroll.EmployeeCode, month generic.Month) *payroll.AttendanceMonthSummary {
	s, ok := t.summaries[monthKey{Employee: emp, Month: month}]
	if !ok {
		return nil
	}
	return &s
}

func (t *tables) hasPendingRequest(emp payroll.EmployeeCode, month generic.Month, kind payroll.RequestKind) bool {
	for _, r := range t.pending {
		if r.EmployeeCode != emp || r.Kind != kind {
			continue
		}
		if _, ok := r.Period.Intersect(month.Period()); ok {
			return true
		}
	}
	return false
}

func (t *tables) getActiveSalaryInformation(emp payroll.EmployeeCode, start, end generic.Date) []payroll.SalaryInformation {
	period := generic.Period{Start: start, End: end}
	var out []payroll.SalaryInformation
	for _, s := range t.salaries {
		if s.EmployeeCode == emp && s.Status == payroll.SalaryActive && s.Window.Overlaps(period) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Window.From.Before(out[j].Window.From) })
	return out
}

func (t *tables) getActiveComponents(emp payroll.EmployeeCode, start, end generic.Date) []payroll.PayComponent {
	period := generic.Period{Start: start, End: end}
	var out []payroll.PayComponent
	for _, c := range t.components {
		if c.EmployeeCode == emp && c.Window.Overlaps(period) {
			out = append(out, c)
		}
	}
	return out
}

func (t *tables) upsertAutoComponent(emp payroll.EmployeeCode, name string, period generic.Period, amount int64) error {
	end := period.End
	k := autoKey(emp, name, period.Start, &end)
	if amount <= 0 {
		t.components = slices.DeleteFunc(t.components, func(c payroll.PayComponent) bool {
			return autoKey(c.EmployeeCode, c.Name, c.Window.From, c.Window.To) == k
		})
		return nil
	}

	ct, ok := t.componentTypes[payroll.AutoComponentType]
	if !ok {
		return &payroll.MissingConfigurationError{
			EmployeeCode: emp,
			What:         "pay component type " + payroll.AutoComponentType,
		}
	}

	value := amount
	for i, c := range t.components {
		if autoKey(c.EmployeeCode, c.Name, c.Window.From, c.Window.To) == k {
			t.components[i].Value = &value
			t.components[i].Type = ct
			return nil
		}
	}
	t.components = append(t.components, payroll.PayComponent{
		ID:           uuid.NewString(),
		EmployeeCode: emp,
		Type:         ct,
		Name:         name,
		Value:        &value,
		Window:       generic.Window{From: period.Start, To: &end},
		IsAddition:   true,
	})
	return nil
}

func autoKey(emp payroll.EmployeeCode, name string, from generic.Date, to *generic.Date) componentKey {
	k := componentKey{Employee: emp, Name: name, Start: from.String()}
	if to != nil {
		k.End = to.String()
	}
	return k
}

func (t *tables) getStatement(emp payroll.EmployeeCode, month generic.Month) (*payroll.PayStatement, error) {
	s, ok := t.statements[monthKey{Employee: emp, Month: month}]
	if !ok {
		return nil, payroll.ErrStatementNotFound
	}
	s.LineItems = append([]payroll.LineItem(nil), s.LineItems...)
	return &s, nil
}

func (t *tables) listStatements(month generic.Month) []payroll.PayStatement {
	var out []payroll.PayStatement
	for k, s := range t.statements {
		if k.Month == month {
			s.LineItems = append([]payroll.LineItem(nil), s.LineItems...)
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeCode < out[j].EmployeeCode })
	return out
}

func (t *tables) upsertDraftStatement(emp payroll.EmployeeCode, month generic.Month, totals payroll.Totals, items []payroll.LineItem, now time.Time) (*payroll.PayStatement, error) {
	k := monthKey{Employee: emp, Month: month}
	s, exists := t.statements[k]
	if exists && !s.Status.IsMutable() {
		return nil, &payroll.ImmutableStateError{EmployeeCode: emp, Month: month}
	}
	if !exists {
		s = payroll.PayStatement{
			ID:           uuid.NewString(),
			EmployeeCode: emp,
			Month:        month,
			Status:       payroll.StatusDraft,
			CreatedAt:    now,
		}
	}
	s.Totals = totals
	s.LineItems = append([]payroll.LineItem(nil), items...)
	s.UpdatedAt = now
	t.statements[k] = s
	return t.getStatement(emp, month)
}

func (t *tables) approveStatement(emp payroll.EmployeeCode, month generic.Month, now time.Time) (*payroll.PayStatement, error) {
	k := monthKey{Employee: emp, Month: month}
	s, ok := t.statements[k]
	if !ok {
		return nil, payroll.ErrStatementNotFound
	}
	if !s.Status.IsMutable() {
		return nil, &payroll.ImmutableStateError{EmployeeCode: emp, Month: month}
	}
	next, err := s.Status.Approve()
	if err != nil {
		return nil, err
	}
	s.Status = next
	s.UpdatedAt = now
	t.statements[k] = s
	return t.getStatement(emp, month)
}

func (t *tables) approvePeriod(month generic.Month, now time.Time) int {
	n := 0
	for k, s := range t.statements {
		if k.Month != month || !s.Status.IsMutable() {
			continue
		}
		s.Status = payroll.StatusApproved
		s.UpdatedAt = now
		t.statements[k] = s
		n++
	}
	return n
}

// activeOn filters items whose window covers asOf.
func activeOn[T any](items []T, asOf generic.Date, window func(T) generic.Window) []T {
	var out []T
	for _, item := range items {
		if window(item).Covers(asOf) {
			out = append(out, item)
		}
	}
	return out
}
