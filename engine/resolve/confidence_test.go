package resolve

import (
	"testing"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

func allOutcomes(resolved bool, tier domain.Tier) []Outcome {
	fields := []Field{
		FieldVIN, FieldYear, FieldMake, FieldModel,
		FieldMarketValue, FieldOdometer, FieldSettlementValue, FieldLocation,
	}
	outcomes := make([]Outcome, 0, len(fields))
	for _, f := range fields {
		outcomes = append(outcomes, Outcome{Field: f, Resolved: resolved, Tier: tier})
	}
	return outcomes
}

func TestScoreBounds(t *testing.T) {
	if got := Score(allOutcomes(true, domain.TierDirect)); got != 100 {
		t.Errorf("all direct = %v, want 100", got)
	}
	if got := Score(allOutcomes(false, 0)); got != 0 {
		t.Errorf("none resolved = %v, want 0", got)
	}
	if got := Score(nil); got != 0 {
		t.Errorf("no outcomes = %v, want 0", got)
	}
}

func TestScoreTierMultipliers(t *testing.T) {
	cases := []struct {
		tier domain.Tier
		want float64
	}{
		{domain.TierDirect, 20},
		{domain.TierTolerant, 16},
		{domain.TierCrossField, 12},
		{domain.TierReconstructed, 8},
	}
	for _, tc := range cases {
		outcomes := allOutcomes(false, 0)
		outcomes[0] = Outcome{Field: FieldVIN, Resolved: true, Tier: tc.tier}
		if got := Score(outcomes); got != tc.want {
			t.Errorf("vin alone at tier %v = %v, want %v", tc.tier, got, tc.want)
		}
	}
}

func TestScoreMixedOutcomes(t *testing.T) {
	outcomes := []Outcome{
		{Field: FieldVIN, Resolved: true, Tier: domain.TierDirect},
		{Field: FieldYear, Resolved: true, Tier: domain.TierCrossField},
		{Field: FieldMake, Resolved: true, Tier: domain.TierTolerant},
		{Field: FieldModel, Resolved: true, Tier: domain.TierReconstructed},
		{Field: FieldMarketValue, Resolved: false},
		{Field: FieldOdometer, Resolved: false},
		{Field: FieldSettlementValue, Resolved: false},
		{Field: FieldLocation, Resolved: false},
	}
	// 20 + 15*0.6 + 15*0.8 + 15*0.4 over the full 100-point scale.
	if got := Score(outcomes); got != 47 {
		t.Errorf("mixed = %v, want 47", got)
	}
}

func TestScoreIgnoresUnknownFields(t *testing.T) {
	outcomes := append(allOutcomes(false, 0), Outcome{Field: "trim_level", Resolved: true, Tier: domain.TierDirect})
	if got := Score(outcomes); got != 0 {
		t.Errorf("unknown field changed score: %v", got)
	}
}

func TestScoreIsPure(t *testing.T) {
	outcomes := allOutcomes(true, domain.TierTolerant)
	first := Score(outcomes)
	second := Score(outcomes)
	if first != second {
		t.Errorf("score not deterministic: %v then %v", first, second)
	}
	if first != 80 {
		t.Errorf("all tolerant = %v, want 80", first)
	}
}
