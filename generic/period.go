package generic

// =============================================================================
// PERIOD - A closed range of days
// =============================================================================

// Period is the closed range [Start, End]. A period whose End is before its
// Start is empty.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) IsEmpty() bool { return p.Start.After(p.End) }

// Days returns every day in the period in order.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Intersect clips p to other. ok is false when they share no day.
func (p Period) Intersect(other Period) (clipped Period, ok bool) {
	clipped = Period{
		Start: MaxDate(p.Start, other.Start),
		End:   MinDate(p.End, other.End),
	}
	return clipped, !clipped.IsEmpty()
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// WINDOW - Effective-dated validity
// =============================================================================

// Window is the validity of an effective-dated record: From is inclusive,
// To is inclusive and nil means open-ended.
type Window struct {
	From Date
	To   *Date
}

// Covers reports whether d falls in [From, To].
func (w Window) Covers(d Date) bool {
	if d.Before(w.From) {
		return false
	}
	return w.To == nil || d.BeforeOrEqual(*w.To)
}

// Clip intersects the window with p.
func (w Window) Clip(p Period) (Period, bool) {
	end := p.End
	if w.To != nil {
		end = MinDate(end, *w.To)
	}
	return Period{Start: MaxDate(w.From, p.Start), End: end}.Intersect(p)
}

// Overlaps reports whether the window shares at least one day with p.
func (w Window) Overlaps(p Period) bool {
	_, ok := w.Clip(p)
	return ok
}
