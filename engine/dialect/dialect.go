// Package dialect identifies which report family a valuation document came
// from by scanning for signature substrings unique to each known format.
package dialect

import (
	"strings"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

// signatures are checked in order; the first dialect with a matching needle
// wins. Needles are lowercase and compared case-insensitively.
var signatures = []struct {
	dialect domain.Dialect
	needles []string
}{
	{domain.DialectCCC, []string{
		"ccc one",
		"ccc information services",
		"market valuation report",
	}},
	{domain.DialectMitchell, []string{
		"mitchell international",
		"mitchell workcenter",
		"workcenter total loss",
	}},
}

// Classify scans the document for dialect signatures. No match yields
// DialectUnknown; the caller is responsible for mapping that to the default
// dialect and recording a warning.
func Classify(doc domain.Document) domain.Dialect {
	text := strings.ToLower(doc.Text())
	for _, sig := range signatures {
		for _, needle := range sig.needles {
			if strings.Contains(text, needle) {
				return sig.dialect
			}
		}
	}
	return domain.DialectUnknown
}
