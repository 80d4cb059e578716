package settle

import (
	"fmt"

	"github.com/etnz/settle/date"
)

// Holiday is a non working day for card processors.
type Holiday struct {
	Name      string    `json:"name" yaml:"name" validate:"required"`
	Date      date.Date `json:"date" yaml:"date"`
	Recurring bool      `json:"recurring,omitempty" yaml:"recurring"` // same month and day every year
	Active    bool      `json:"active" yaml:"active"`
	Notes     string    `json:"notes,omitempty" yaml:"notes"`
}

// Matches reports whether the holiday falls on d.
func (h Holiday) Matches(d date.Date) bool {
	if !h.Active {
		return false
	}
	if h.Recurring {
		return h.Date.Month() == d.Month() && h.Date.Day() == d.Day()
	}
	return h.Date == d
}

// Calendar answers business day questions.
type Calendar struct {
	holidays []Holiday
}

// NewCalendar returns a calendar, holiday dates must be unique.
func NewCalendar(holidays ...Holiday) (*Calendar, error) {
	seen := make(map[date.Date]string)
	for _, h := range holidays {
		if h.Date.IsZero() {
			return nil, fmt.Errorf("holiday %q has no date", h.Name)
		}
		if other, ok := seen[h.Date]; ok {
			return nil, fmt.Errorf("a holiday already exists for this date: %s (%s, %s)", h.Date, other, h.Name)
		}
		seen[h.Date] = h.Name
	}
	return &Calendar{holidays: holidays}, nil
}

// Holidays returns the configured holidays.
func (c *Calendar) Holidays() []Holiday { return c.holidays }

// IsHoliday reports whether an active holiday falls on d.
func (c *Calendar) IsHoliday(d date.Date) bool {
	for _, h := range c.holidays {
		if h.Matches(d) {
			return true
		}
	}
	return false
}

// IsBusinessDay reports whether d is a week day and not a holiday.
func (c *Calendar) IsBusinessDay(d date.Date) bool {
	return !d.IsWeekend() && !c.IsHoliday(d)
}

// AddBusinessDays returns the n-th business day after from. The starting day
// itself is never counted.
func (c *Calendar) AddBusinessDays(from date.Date, n int) date.Date {
	current := from
	for count := 0; count < n; {
		current = current.Add(1)
		if c.IsBusinessDay(current) {
			count++
		}
	}
	return current
}
