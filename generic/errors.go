/*
errors.go - Centralized error types for the calculation engine

PURPOSE:
  All validation errors in one place for consistency and discoverability.
  Both are raised synchronously at the start of the offending call, are
  never retried and are never swallowed.

ERROR CATEGORIES:
  1. Range errors - a date range whose end precedes its start
  2. Configuration errors - a formula or work schedule violating an invariant

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, generic.ErrInvalidConfiguration) {
        var cfgErr *generic.ConfigurationError
        errors.As(err, &cfgErr) // cfgErr.Field names the offending setting
    }

SEE ALSO:
  - period.go: Raises RangeError
  - schedule/schedule.go, efficiency/formula.go: Raise ConfigurationError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a range's end is before its start.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrInvalidConfiguration is returned when a formula or work schedule
	// violates one of its invariants.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RangeError provides the offending bounds.
type RangeError struct {
	Start TimePoint
	End   TimePoint
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range: end %s before start %s", e.End, e.Start)
}

func (e *RangeError) Unwrap() error {
	return ErrInvalidRange
}

// ConfigurationError names the setting that broke an invariant.
type ConfigurationError struct {
	Field  string // e.g. "aw_to_minutes", "saturday_rule"
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// InvalidConfig is shorthand for building a *ConfigurationError.
func InvalidConfig(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidConfiguration)
}
