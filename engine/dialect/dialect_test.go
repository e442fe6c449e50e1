package dialect

import (
	"testing"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		text string
		want domain.Dialect
	}{
		{
			"ccc header",
			"CCC ONE\nMarket Valuation Report\nClaim: 123",
			domain.DialectCCC,
		},
		{
			"ccc services line",
			"prepared by CCC Information Services Inc.",
			domain.DialectCCC,
		},
		{
			"mitchell header",
			"Mitchell International\nVehicle Valuation",
			domain.DialectMitchell,
		},
		{
			"mitchell workcenter",
			"MITCHELL WORKCENTER Total Loss Valuation",
			domain.DialectMitchell,
		},
		{
			"case-insensitive",
			"mArKeT vAlUaTiOn RePoRt",
			domain.DialectCCC,
		},
		{
			"no signature",
			"2014 Hyundai Santa Fe Sport\nOdometer: 89000",
			domain.DialectUnknown,
		},
		{
			"empty",
			"",
			domain.DialectUnknown,
		},
	}
	for _, tt := range cases {
		got := Classify(domain.NewDocument(tt.text))
		if got != tt.want {
			t.Errorf("%s: Classify = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestClassify_FirstSignatureWins(t *testing.T) {
	// Both families mentioned: signature order decides, and CCC is checked
	// first because it dominates the corpus.
	text := "Market Valuation Report\nconverted from Mitchell WorkCenter"
	if got := Classify(domain.NewDocument(text)); got != domain.DialectCCC {
		t.Errorf("Classify = %q, want ccc", got)
	}
}
