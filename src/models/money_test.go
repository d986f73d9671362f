package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"12", 1200, false},
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12.3", 1230, false},
		{"0.05", 5, false},
		{".5", 50, false},
		{"12.345", 1235, false}, // half-up on the third decimal
		{"12.344", 1234, false},
		{"12.3449", 1234, false},
		{"  7.50  ", 750, false},
		{"", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"12x.00", 0, true},
		{"99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseCents(%q) error = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCents(%q): %v", tt.in, err)
			}
			if got.Cents() != tt.want {
				t.Errorf("ParseCents(%q) = %d cents, want %d", tt.in, got.Cents(), tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{50, "0.50"},
		{1234, "12.34"},
		{50000, "500.00"},
		{-1234, "-12.34"},
	}
	for _, tt := range tests {
		if got := Money(tt.cents).String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	out, err := json.Marshal(Money(55000))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != "550.00" {
		t.Errorf("Marshal = %s, want unquoted 550.00", out)
	}

	var fromNumber Money
	if err := json.Unmarshal([]byte("123.45"), &fromNumber); err != nil {
		t.Fatalf("Unmarshal number: %v", err)
	}
	if fromNumber.Cents() != 12345 {
		t.Errorf("from number = %d cents, want 12345", fromNumber.Cents())
	}

	var fromString Money
	if err := json.Unmarshal([]byte(`"67.89"`), &fromString); err != nil {
		t.Fatalf("Unmarshal string: %v", err)
	}
	if fromString.Cents() != 6789 {
		t.Errorf("from string = %d cents, want 6789", fromString.Cents())
	}

	var m Money
	if err := json.Unmarshal([]byte(`"-1.00"`), &m); err == nil {
		t.Error("negative amount unmarshalled without error")
	}
}
