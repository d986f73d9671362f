package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateStringNotEmpty(t *testing.T) {
	if err := ValidateStringNotEmpty("hello", "name"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateStringNotEmpty("   ", "name"); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("whitespace-only error = %v, want ErrValidationFailed", err)
	}
}

func TestValidateStringMaxLength(t *testing.T) {
	if err := ValidateStringMaxLength(strings.Repeat("a", 10), 10, "name"); err != nil {
		t.Errorf("unexpected error at limit: %v", err)
	}
	if err := ValidateStringMaxLength(strings.Repeat("a", 11), 10, "name"); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("over-limit error = %v, want ErrValidationFailed", err)
	}
	// Multi-byte runes count as one character.
	if err := ValidateStringMaxLength(strings.Repeat("é", 10), 10, "name"); err != nil {
		t.Errorf("unexpected error for multi-byte string: %v", err)
	}
}

func TestValidateDate(t *testing.T) {
	valid := []string{"2025-06-01", "2024-02-29"}
	for _, d := range valid {
		if err := ValidateDate(d, "date"); err != nil {
			t.Errorf("ValidateDate(%q): %v", d, err)
		}
	}
	invalid := []string{"", "06/01/2025", "2025-13-01", "2025-02-30", "yesterday"}
	for _, d := range invalid {
		if err := ValidateDate(d, "date"); !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidateDate(%q) error = %v, want ErrValidationFailed", d, err)
		}
	}
}

func TestValidateOneOf(t *testing.T) {
	if err := ValidateOneOf("monthly", "period", "daily", "weekly", "monthly"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateOneOf("fortnightly", "period", "daily", "weekly", "monthly"); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("error = %v, want ErrValidationFailed", err)
	}
}

func TestValidatePositiveCents(t *testing.T) {
	if err := ValidatePositiveCents(1, "amount"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, cents := range []int64{0, -100} {
		if err := ValidatePositiveCents(cents, "amount"); !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidatePositiveCents(%d) error = %v, want ErrValidationFailed", cents, err)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	if got := SanitizeText(`<script>alert("x")</script>Groceries`); got != "Groceries" {
		t.Errorf("SanitizeText = %q, want script stripped", got)
	}
	if got := SanitizeText("plain text"); got != "plain text" {
		t.Errorf("SanitizeText altered plain text: %q", got)
	}
}
