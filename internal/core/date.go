package core

import "time"

// Date is a calendar day at UTC midnight. All date handling inside the
// application uses this type; the storage layer converts to and from
// ISO-8601 text at its boundary.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today truncates t to its calendar day in UTC.
func Today(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// IsEmpty reports whether the date is unset (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// AddMonths advances the date by n months, clamping the day to the last
// day of the target month (Jan 31 + 1 month = Feb 28/29, never Mar 2).
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// AddDays advances the date by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// MonthBounds returns the half-open interval [first of month, first of
// next month) for the given year and month, rolling December into
// January of the following year.
func MonthBounds(year, month int) (Date, Date) {
	start := NewDate(year, month, 1)
	if month == 12 {
		return start, NewDate(year+1, 1, 1)
	}
	return start, NewDate(year, month+1, 1)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
