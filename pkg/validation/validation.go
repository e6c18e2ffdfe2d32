package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	phonePattern  = regexp.MustCompile(`^[1-9][0-9]{5,15}$`)
	digitsPattern = regexp.MustCompile(`[^0-9]`)
)

// ValidatePhone ensures international format (no leading 0, digits only, length 6-16).
func ValidatePhone(phone string) error {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return errors.New("phone number cannot be empty")
	}
	trimmed = strings.TrimPrefix(trimmed, "+")
	if strings.HasPrefix(trimmed, "0") {
		return errors.New("phone number must be in international format without leading 0")
	}
	if !phonePattern.MatchString(trimmed) {
		return errors.New("phone number must be digits only and at least 6 characters")
	}
	return nil
}

// CleanDigits strips every non-digit character.
func CleanDigits(raw string) string {
	return digitsPattern.ReplaceAllString(raw, "")
}

// IsPlausiblePhone reports whether a cleaned digit string is a dialable
// length. WhatsApp LIDs are typically longer than any E.164 number.
func IsPlausiblePhone(digits string) bool {
	return len(digits) >= 10 && len(digits) <= 15
}

// ValidateSessionName ensures a backend session handle is present.
func ValidateSessionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("session name is required")
	}
	return nil
}
