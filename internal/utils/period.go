package utils

import (
	"fmt"
	"time"
)

const MonthLayout = "2006-01"

// Period is a half-open time range [From, To).
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.To)
}

// BudgetMonth is a calendar month label, e.g. 2025-03, whose period starts on a
// configurable day of the month.
type BudgetMonth struct {
	Year  int
	Month time.Month
}

func ParseBudgetMonth(s string) (BudgetMonth, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return BudgetMonth{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return BudgetMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (m BudgetMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Period returns the range of the budget month. With startDay 15, "2025-03"
// covers 2025-03-15 00:00 up to 2025-04-15 00:00 in loc.
func (m BudgetMonth) Period(startDay int, loc *time.Location) Period {
	startDay = normalizeStartDay(startDay)
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(m.Year, m.Month, startDay, 0, 0, 0, 0, loc)
	to := time.Date(m.Year, m.Month+1, startDay, 0, 0, 0, 0, loc)
	return Period{From: from, To: to}
}

// BudgetMonthOf returns the budget month containing t.
func BudgetMonthOf(t time.Time, startDay int, loc *time.Location) BudgetMonth {
	startDay = normalizeStartDay(startDay)
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if local.Day() < startDay {
		prev := time.Date(local.Year(), local.Month()-1, 1, 0, 0, 0, 0, loc)
		return BudgetMonth{Year: prev.Year(), Month: prev.Month()}
	}
	return BudgetMonth{Year: local.Year(), Month: local.Month()}
}

// Days 29-31 do not exist in every month.
func normalizeStartDay(day int) int {
	if day < 1 || day > 28 {
		return 1
	}
	return day
}
