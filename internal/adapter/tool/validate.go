package tool

import (
	"fmt"
	"strings"
)

// RequireField returns an error if the string value is empty or whitespace.
func RequireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("'%s' is required", name)
	}
	return nil
}

// ValidateRange checks that value is within [min, max]. Returns nil on success.
func ValidateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be %d-%d", name, min, max)
	}
	return nil
}
