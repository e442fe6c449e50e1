package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// VIN format: 17 alphanumeric characters, excluding I, O, Q.
var vinRegex = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// MinReadableChars is the minimum number of non-whitespace characters a
// document must carry before resolution is attempted. Below this the input
// is treated as unreadable and resolution fails outright.
const MinReadableChars = 12

// Model year bounds accepted on a resolved record. VIN year codes cycle
// every 30 years, so anything outside this window is a decode defect.
const (
	MinModelYear = 1980
	MaxModelYear = 2039
)

// ValidateVIN reports whether s is a well-formed 17-character VIN.
func ValidateVIN(s string) error {
	if !vinRegex.MatchString(strings.ToUpper(s)) {
		return NewResolutionError("vin", s, ErrInvalidVIN)
	}
	return nil
}

// ValidateDocument is the fatal gate at pipeline entry. Empty or
// near-empty input cannot be resolved and must not produce a record.
func ValidateDocument(doc Document) error {
	if doc.runeCountNonSpace() < MinReadableChars {
		return NewResolutionError("document", "", ErrUnreadableInput)
	}
	return nil
}

// ValidateRecord checks invariants a resolved record must hold before it
// is persisted or published. Resolution itself never returns these errors;
// they guard against programming mistakes in the resolver.
func ValidateRecord(r Record) error {
	if r.VIN != "" {
		if err := ValidateVIN(r.VIN); err != nil {
			return err
		}
	}
	if r.ModelYear != 0 && (r.ModelYear < MinModelYear || r.ModelYear > MaxModelYear) {
		return NewResolutionError("modelYear", fmt.Sprintf("%d", r.ModelYear), ErrYearOutOfRange)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return NewResolutionError("confidence", fmt.Sprintf("%.2f", r.Confidence), ErrConfidenceOutOfRange)
	}
	if !ValidDialects[r.Dialect] {
		return NewResolutionError("dialect", string(r.Dialect), ErrUnknownDialect)
	}
	return nil
}
