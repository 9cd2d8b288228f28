package core

import (
	"errors"
	"strings"
	"testing"
)

func validExpense() Transaction {
	return Transaction{
		UserID:      1,
		Type:        Expense,
		Amount:      Money{Cents: 1500},
		Date:        NewDate(2024, 3, 10),
		Description: "Rent",
	}
}

func TestTransactionValidate(t *testing.T) {
	parentID := int64(7)

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid", func(tr *Transaction) {}, nil},
		{"bad type", func(tr *Transaction) { tr.Type = "transfer" }, ErrInvalidType},
		{"zero amount", func(tr *Transaction) { tr.Amount.Cents = 0 }, ErrInvalidAmount},
		{"negative amount", func(tr *Transaction) { tr.Amount.Cents = -100 }, ErrInvalidAmount},
		{"zero date", func(tr *Transaction) { tr.Date = Date{} }, ErrInvalidDate},
		{"blank description", func(tr *Transaction) { tr.Description = "   " }, ErrEmptyDescription},
		{"recurring child", func(tr *Transaction) {
			tr.ParentID = &parentID
			tr.IsRecurring = true
		}, nil}, // matched by message below
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validExpense()
			tt.mutate(&tr)
			err := tr.Validate()

			if tt.name == "valid" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionValidateDescriptionLength(t *testing.T) {
	tr := validExpense()
	tr.Description = strings.Repeat("x", 201)
	if err := tr.Validate(); err == nil {
		t.Error("201-char description should fail validation")
	}

	tr.Description = strings.Repeat("x", 200)
	if err := tr.Validate(); err != nil {
		t.Errorf("200-char description should pass, got %v", err)
	}
}

func TestTransactionValidateRecurrenceWindow(t *testing.T) {
	tr := validExpense()
	tr.IsRecurring = true
	tr.RecurrenceFrequency = Monthly
	tr.RecurrenceStartDate = NewDate(2024, 6, 1)
	tr.RecurrenceEndDate = NewDate(2024, 1, 1)
	if err := tr.Validate(); err == nil {
		t.Error("end date before start date should fail validation")
	}
}

func TestStepMonths(t *testing.T) {
	tests := []struct {
		freq Frequency
		step int
		ok   bool
	}{
		{Monthly, 1, true},
		{Bimonthly, 2, true},
		{Quarterly, 3, true},
		{Semiannual, 6, true},
		{Annual, 12, true},
		{"weekly", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		step, ok := tt.freq.StepMonths()
		if step != tt.step || ok != tt.ok {
			t.Errorf("StepMonths(%q) = (%d, %v), want (%d, %v)", tt.freq, step, ok, tt.step, tt.ok)
		}
	}
}

func TestIsTemplate(t *testing.T) {
	parentID := int64(3)

	tr := validExpense()
	if tr.IsTemplate() {
		t.Error("plain expense should not be a template")
	}

	tr.IsRecurring = true
	if !tr.IsTemplate() {
		t.Error("recurring expense without parent should be a template")
	}

	tr.ParentID = &parentID
	if tr.IsTemplate() {
		t.Error("row with parent should never be a template")
	}
	if !tr.IsOccurrence() {
		t.Error("row with parent should be an occurrence")
	}
}
