package validation

import (
	"fmt"
	"regexp"
)

// Entity names (stock codes, broker codes) originate in raw dump content and
// become object path segments, so they must never carry path metacharacters.
var entityNamePattern = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)

// Tickers arrive from the HTTP surface and are forwarded to an external
// provider; same character policy as entity names.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)

// ValidateEntityName rejects entity names that are unsafe as a path segment.
func ValidateEntityName(name string) error {
	if !entityNamePattern.MatchString(name) {
		return fmt.Errorf("invalid entity name %q", name)
	}
	return nil
}

// ValidateTicker rejects tickers that are not plausible exchange symbols.
func ValidateTicker(ticker string) error {
	if !tickerPattern.MatchString(ticker) {
		return fmt.Errorf("invalid ticker %q", ticker)
	}
	return nil
}
