package core

import (
	"testing"
	"time"
)

func TestAddMonthsClampsDay(t *testing.T) {
	tests := []struct {
		name     string
		start    Date
		months   int
		expected Date
	}{
		{"mid month", NewDate(2024, 1, 15), 1, NewDate(2024, 2, 15)},
		{"jan 31 to feb leap year", NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)},
		{"jan 31 to feb non leap", NewDate(2025, 1, 31), 1, NewDate(2025, 2, 28)},
		{"mar 31 to apr 30", NewDate(2024, 3, 31), 1, NewDate(2024, 4, 30)},
		{"quarterly step", NewDate(2024, 1, 15), 3, NewDate(2024, 4, 15)},
		{"year rollover", NewDate(2024, 11, 10), 2, NewDate(2025, 1, 10)},
		{"annual step", NewDate(2024, 2, 29), 12, NewDate(2025, 2, 28)},
		{"twelve from october", NewDate(2024, 10, 31), 12, NewDate(2025, 10, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.AddMonths(tt.months)
			if !got.Equal(tt.expected.Time) {
				t.Errorf("AddMonths(%d) from %s = %s, want %s", tt.months, tt.start, got, tt.expected)
			}
		})
	}
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		year, month int
		start, end  string
	}{
		{2024, 1, "2024-01-01", "2024-02-01"},
		{2024, 2, "2024-02-01", "2024-03-01"},
		{2024, 12, "2024-12-01", "2025-01-01"},
	}

	for _, tt := range tests {
		start, end := MonthBounds(tt.year, tt.month)
		if start.String() != tt.start || end.String() != tt.end {
			t.Errorf("MonthBounds(%d, %d) = (%s, %s), want (%s, %s)",
				tt.year, tt.month, start, end, tt.start, tt.end)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-07")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if d.String() != "2024-03-07" {
		t.Errorf("round trip = %s, want 2024-03-07", d)
	}

	for _, bad := range []string{"", "2024-13-01", "07/03/2024", "not a date"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) should fail", bad)
		}
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2024, 6, 15, 23, 45, 12, 0, time.UTC)
	today := Today(now)
	if today.String() != "2024-06-15" {
		t.Errorf("Today = %s, want 2024-06-15", today)
	}
}
