package resolve

import (
	"math"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

// Field names a scored record field.
type Field string

const (
	FieldVIN             Field = "vin"
	FieldYear            Field = "model_year"
	FieldMake            Field = "make"
	FieldModel           Field = "model"
	FieldMarketValue     Field = "market_value"
	FieldOdometer        Field = "odometer"
	FieldSettlementValue Field = "settlement_value"
	FieldLocation        Field = "location"
)

// fieldWeights encode how much each field matters to a usable valuation
// record. They sum to 100.
var fieldWeights = map[Field]float64{
	FieldVIN:             20,
	FieldYear:            15,
	FieldMake:            15,
	FieldModel:           15,
	FieldMarketValue:     12,
	FieldOdometer:        10,
	FieldSettlementValue: 8,
	FieldLocation:        5,
}

// tierMultipliers discount a field by how it was obtained. A reading off a
// labeled line is worth full weight, a reconstruction well under half.
var tierMultipliers = map[domain.Tier]float64{
	domain.TierDirect:        1.0,
	domain.TierTolerant:      0.8,
	domain.TierCrossField:    0.6,
	domain.TierReconstructed: 0.4,
}

// Outcome is one field's resolution result as seen by the scorer.
type Outcome struct {
	Field    Field
	Resolved bool
	Tier     domain.Tier
}

// Score folds per-field outcomes into a single confidence figure in
// [0, 100], rounded to two decimals. It is a pure function of its input:
// same outcomes, same score.
func Score(outcomes []Outcome) float64 {
	var total, earned float64
	for _, o := range outcomes {
		weight, known := fieldWeights[o.Field]
		if !known {
			continue
		}
		total += weight
		if !o.Resolved {
			continue
		}
		earned += weight * tierMultipliers[o.Tier]
	}
	if total == 0 {
		return 0
	}
	score := earned / total * 100
	score = math.Round(score*100) / 100
	return math.Min(100, math.Max(0, score))
}
