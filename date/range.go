package date

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar period used to group reports.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

// Periods lists the periods of the published reports, shortest first.
var Periods = []Period{Weekly, Monthly, Quarterly, Yearly}

var periodNames = map[string]Period{
	"daily": Daily, "day": Daily, "diario": Daily,
	"weekly": Weekly, "week": Weekly, "semanal": Weekly,
	"monthly": Monthly, "month": Monthly, "mensual": Monthly,
	"quarterly": Quarterly, "quarter": Quarterly, "trimestral": Quarterly,
	"yearly": Yearly, "year": Yearly, "anual": Yearly,
}

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// ParsePeriod parses a period name, in English or Spanish.
func ParsePeriod(s string) (Period, error) {
	if p, ok := periodNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return Daily, fmt.Errorf("unknown period %q", s)
}

func (p Period) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Period) UnmarshalText(text []byte) error {
	v, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Range is a range of dates, boundaries included. A zero boundary leaves
// the range open on that side.
type Range struct{ From, To Date }

// NewRange returns the calendar period containing d.
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// Between returns the range from 'from' to 'to'.
func Between(from, to Date) Range { return Range{From: from, To: to} }

// Until returns the range of all dates up to 'to'.
func Until(to Date) Range { return Range{To: to} }

// Contains reports whether d is in the range.
func (r Range) Contains(d Date) bool {
	return (r.From.IsZero() || !d.Before(r.From)) && (r.To.IsZero() || !d.After(r.To))
}

// Next returns the range of the same period following r.
func (r Range) Next() Range {
	p, ok := r.Period()
	if !ok {
		return Between(r.To.Add(1), r.To.Add(r.Days()))
	}
	return NewRange(r.To.Add(1), p)
}

// Days counts the dates in a closed range.
func (r Range) Days() int { return r.To.Sub(r.From) + 1 }

// Period returns the period of this range if it is a calendar one.
func (r Range) Period() (p Period, ok bool) {
	if r.From.IsZero() || r.To.IsZero() {
		return Daily, false
	}
	switch {
	case r.From == r.To:
		return Daily, true
	case r.From.Weekday() == time.Monday && r.From.EndOf(Weekly) == r.To:
		return Weekly, true
	case r.From.Day() == 1 && r.From.EndOf(Monthly) == r.To:
		return Monthly, true
	case r.From.StartOf(Quarterly) == r.From && r.From.EndOf(Quarterly) == r.To:
		return Quarterly, true
	case r.From.StartOf(Yearly) == r.From && r.From.EndOf(Yearly) == r.To:
		return Yearly, true
	}
	return Daily, false
}

// Name is the period name, or "special".
func (r Range) Name() string {
	if p, ok := r.Period(); ok {
		return p.String()
	}
	return "special"
}

// Identifier is a short unique name of the range, like 2025-W10, 2025-03
// or 2025-Q1.
func (r Range) Identifier() string {
	p, ok := r.Period()
	if !ok {
		return fmt.Sprintf("%s_%s", r.From, r.To)
	}
	switch p {
	case Weekly:
		year, week := r.From.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Monthly:
		return r.From.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", r.From.Year(), (r.From.Month()-1)/3+1)
	case Yearly:
		return r.From.Format("2006")
	}
	return r.From.String()
}

func (r Range) String() string {
	if p, ok := r.Period(); ok && p != Daily {
		return r.Identifier()
	}
	return fmt.Sprintf("%s..%s", r.From, r.To)
}
