package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	clockTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	controlRegex   = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateClockTime checks a 24-hour HH:MM time
func ValidateClockTime(s string) error {
	if !clockTimeRegex.MatchString(s) {
		return fmt.Errorf("invalid time format %q, use HH:MM", s)
	}
	return nil
}

// ValidateLength checks that s has between min and max characters (runes)
func ValidateLength(s string, min, max int) error {
	n := utf8.RuneCountInString(s)
	if n < min {
		return fmt.Errorf("must be at least %d characters", min)
	}
	if max > 0 && n > max {
		return fmt.Errorf("must be at most %d characters", max)
	}
	return nil
}

// SanitizeString strips control characters (keeping tab and newlines) and
// surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlRegex.ReplaceAllString(s, ""))
}
