package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for resolution outcomes. Only ErrUnreadableInput is fatal;
// the rest degrade into warnings and a lowered confidence score.
var (
	ErrUnreadableInput = errors.New("input empty or unreadable")
	ErrUnknownDialect  = errors.New("report dialect not recognized")
	ErrFieldUnresolved = errors.New("field unresolved")
	ErrVINDecode       = errors.New("vin decode found no table match")
	ErrAmbiguousModel  = errors.New("model reconstruction is ambiguous")

	ErrInvalidVIN           = errors.New("invalid VIN")
	ErrYearOutOfRange       = errors.New("year out of range")
	ErrConfidenceOutOfRange = errors.New("confidence out of range")
)

// ResolutionError wraps a sentinel with the field and value involved.
type ResolutionError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ResolutionError) Unwrap() error { return e.Wrapped }

// NewResolutionError creates a ResolutionError.
func NewResolutionError(field, value string, wrapped error) *ResolutionError {
	return &ResolutionError{Field: field, Value: value, Wrapped: wrapped}
}
