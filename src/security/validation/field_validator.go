package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MaxIconLength        = 50
	dateLayout           = "2006-01-02"
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateDate checks a YYYY-MM-DD calendar date.
func ValidateDate(s, fieldName string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("%w: %s must be a valid date in YYYY-MM-DD format", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateOneOf checks that a value is one of the allowed enum values.
func ValidateOneOf(s, fieldName string, allowed ...string) error {
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be one of: %s", ErrValidationFailed, fieldName, strings.Join(allowed, ", "))
}

// ValidatePositiveCents checks that a monetary amount is strictly
// positive. Zero-amount budgets are rejected here so the progress ratio
// downstream always has a defined denominator.
func ValidatePositiveCents(cents int64, fieldName string) error {
	if cents <= 0 {
		return fmt.Errorf("%w: %s must be a positive amount", ErrValidationFailed, fieldName)
	}
	return nil
}
