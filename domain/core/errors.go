package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors. Always fail fast, never recovered silently.
	ErrConfiguration         = errors.New("invalid configuration")
	ErrInvalidAlternative    = fmt.Errorf("%w: alternative", ErrConfiguration)
	ErrInvalidCIMethod       = fmt.Errorf("%w: ci method", ErrConfiguration)
	ErrInvalidConfidence     = fmt.Errorf("%w: confidence level", ErrConfiguration)
	ErrInvalidRankCeiling    = fmt.Errorf("%w: rank ceiling", ErrConfiguration)
	ErrInvalidAlpha          = fmt.Errorf("%w: alpha", ErrConfiguration)
	ErrUnknownDatatype       = fmt.Errorf("%w: datatype", ErrConfiguration)
	ErrInvalidBaselinePolicy = fmt.Errorf("%w: baseline policy", ErrConfiguration)

	// Data integrity errors
	ErrInconsistentBaseline = errors.New("inconsistent random expectation")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInsufficientData     = errors.New("insufficient data for analysis")
)

// NewConfigurationError reports an invalid option value against one of the
// configuration sentinels.
func NewConfigurationError(sentinel error, value interface{}) error {
	return fmt.Errorf("%w: %v", sentinel, value)
}

// NewInconsistentBaselineError reports two distinct random expectations
// inside a scope that must share one.
func NewInconsistentBaselineError(scope string, first, other float64) error {
	return fmt.Errorf("%w in %s: %g != %g", ErrInconsistentBaseline, scope, first, other)
}

// NewInvalidInputError reports a data-integrity violation in an input row.
func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsInconsistentBaselineError(err error) bool {
	return errors.Is(err, ErrInconsistentBaseline)
}

func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
