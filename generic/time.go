/*
time.go - Calendar dates and months

PURPOSE:
  Payroll works on whole days. Attendance rows, salary windows, policies and
  pay statements are all keyed by a calendar date or a calendar month, never
  by an instant. Date strips the clock so two values for the same day always
  compare equal regardless of where they were parsed.

KEY TYPES:
  - Date:  A calendar day (UTC midnight)
  - Month: A calendar month (year + month), the payroll period unit

SEE ALSO:
  - period.go: Closed date ranges and effective-dated windows
  - money.go:  Rounding helpers
*/
package generic

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// =============================================================================
// DATE - A calendar day
// =============================================================================

type Date struct {
	Time time.Time
}

// NewDate builds the date for year/month/day at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.Time.AddDate(0, 0, n)) }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) String() string {
	return d.Time.Format(dateLayout)
}

// MinDate returns the earlier of a and b.
func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// =============================================================================
// MONTH - The payroll period
// =============================================================================

type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: d.Month()}
}

// ParseMonth accepts YYYY-MM, or a full YYYY-MM-DD date whose day is ignored.
func ParseMonth(s string) (Month, error) {
	if t, err := time.Parse(monthLayout, s); err == nil {
		return Month{Year: t.Year(), Month: t.Month()}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Month{Year: t.Year(), Month: t.Month()}, nil
	}
	return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

func (m Month) Start() Date { return NewDate(m.Year, m.Month, 1) }

func (m Month) End() Date {
	return DateOf(time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}

// Period returns [first day, last day] of the month.
func (m Month) Period() Period { return Period{Start: m.Start(), End: m.End()} }

func (m Month) Previous() Month { return MonthOf(m.Start().AddDays(-1)) }
func (m Month) Next() Month     { return MonthOf(m.End().AddDays(1)) }

func (m Month) Before(other Month) bool {
	return m.Year < other.Year || (m.Year == other.Year && m.Month < other.Month)
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
