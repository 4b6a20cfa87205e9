package model

import "time"

// DateFormat is the on-disk and CLI date layout.
const DateFormat = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

// DatePtr returns a pointer to the day of t.
func DatePtr(t time.Time) *time.Time {
	d := Day(t)
	return &d
}

// DateRange is an inclusive range of days. A nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether the day of t lies inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	if r.From != nil && d.Before(Day(*r.From)) {
		return false
	}
	if r.To != nil && d.After(Day(*r.To)) {
		return false
	}
	return true
}
