package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0.01", 1, false},
		{"12.3", 1230, false},
		{"12.345", 1235, false}, // half-up on third decimal
		{"12.344", 1234, false},
		{".50", 50, false},
		{"", 0, true},
		{"0", 0, true},
		{"0.00", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"abc", 0, true},
		{"1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDecimalToCents(%q) should fail, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) returned error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents    int64
		expected string
	}{
		{1234, "12.34"},
		{100, "1.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-1234, "-12.34"},
	}

	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.expected {
			t.Errorf("FormatCents(%d) = %s, want %s", tt.cents, got, tt.expected)
		}
	}
}
