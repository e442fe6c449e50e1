// Package domain defines core domain types, constants, and validation for the
// LossLens resolution pipeline. It acts as the validation gate at pipeline
// entry points.
package domain

// Dialect identifies the report family a valuation document came from.
type Dialect string

const (
	// DialectCCC covers CCC ONE market valuation reports.
	DialectCCC Dialect = "ccc"
	// DialectMitchell covers Mitchell WorkCenter valuation reports.
	DialectMitchell Dialect = "mitchell"
	// DialectUnknown is returned when no signature matched. It is always
	// mapped to DefaultDialect before field resolution begins.
	DialectUnknown Dialect = "unknown"
)

// DefaultDialect is used when classification fails. CCC reports are by far
// the most common in the corpus.
const DefaultDialect = DialectCCC

// ValidDialects is the set of dialects field resolution accepts.
var ValidDialects = map[Dialect]bool{
	DialectCCC:      true,
	DialectMitchell: true,
}

// Tier ranks the cascade strategy that produced a field value. Lower is more
// trustworthy and contributes more confidence weight.
type Tier int

const (
	// TierDirect is a clean, dialect-specific labeled-line match.
	TierDirect Tier = iota + 1
	// TierTolerant matched a known corruption of the expected label.
	TierTolerant
	// TierCrossField recovered the value from another field, e.g. decoding
	// a VIN found elsewhere in the document.
	TierCrossField
	// TierReconstructed rebuilt the value from fragments using
	// manufacturer-specific rules. Always flagged for review.
	TierReconstructed
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierTolerant:
		return "tolerant"
	case TierCrossField:
		return "cross-field"
	case TierReconstructed:
		return "reconstructed"
	default:
		return "unknown"
	}
}

// Resolution holds the outcome of one field's cascade. It is produced once
// and never mutated.
type Resolution[T any] struct {
	Value    T
	OK       bool
	Tier     Tier
	Strategy string
}

// Resolved builds a successful Resolution.
func Resolved[T any](value T, tier Tier, strategy string) Resolution[T] {
	return Resolution[T]{Value: value, OK: true, Tier: tier, Strategy: strategy}
}

// Unresolved builds a failed Resolution.
func Unresolved[T any]() Resolution[T] {
	return Resolution[T]{}
}

// Record is the structured output of resolving one valuation document. It is
// constructed exactly once per run; the engine keeps no reference after
// returning it.
type Record struct {
	VIN             string   `json:"vin,omitempty"`
	ModelYear       int      `json:"model_year,omitempty"`
	Make            string   `json:"make,omitempty"`
	Model           string   `json:"model,omitempty"`
	Odometer        int      `json:"odometer,omitempty"`
	Location        string   `json:"location,omitempty"`
	MarketValue     float64  `json:"market_value,omitempty"`
	SettlementValue float64  `json:"settlement_value,omitempty"`
	Dialect         Dialect  `json:"dialect"`
	Confidence      float64  `json:"confidence"`
	Warnings        []string `json:"warnings,omitempty"`
}
