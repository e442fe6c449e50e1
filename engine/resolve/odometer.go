package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

var odometerDirectRe = regexp.MustCompile(`(?i)^\s*odometer(?:\s+reading)?\s*[:\-]?\s*(.+)$`)

var odometerLabels = []string{
	"odometer reading",
	"odometer",
	"mileage",
}

// odometerArtifacts are unit and status tokens that ride along with the
// reading and must not be parsed as part of it.
var odometerArtifacts = map[string]bool{
	"mi":     true,
	"miles":  true,
	"mile":   true,
	"km":     true,
	"act":    true,
	"actual": true,
	"est":    true,
	"|":      true,
}

// digitConfusions undoes letters misread inside a number. Only applied on
// the tolerant tier, where the token is already known to be a reading.
var digitConfusions = strings.NewReplacer(
	"O", "0", "o", "0",
	"I", "1", "l", "1", "|", "1",
	"B", "8",
	"S", "5",
)

// maxOdometer rejects readings that are really a misparsed identifier or
// phone number.
const maxOdometer = 1500000

func (r *Resolver) resolveOdometer(doc domain.Document) domain.Resolution[int] {
	return runCascade(doc, []strategy[int]{
		{
			name: "labeled-reading",
			tier: domain.TierDirect,
			run:  directOdometer,
		},
		{
			name: "tolerant-reading",
			tier: domain.TierTolerant,
			run:  tolerantOdometer,
		},
	})
}

func directOdometer(doc domain.Document) (int, bool) {
	for _, line := range doc.Lines() {
		m := odometerDirectRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if v, ok := parseReading(m[1], false); ok {
			return v, true
		}
	}
	return 0, false
}

func tolerantOdometer(doc domain.Document) (int, bool) {
	for _, line := range doc.Lines() {
		folded := foldLabelText(line)
		end, ok := folded.find(odometerLabels)
		if !ok {
			continue
		}
		if v, ok := parseReading(line[end:], true); ok {
			return v, true
		}
	}
	return 0, false
}

// parseReading extracts the mileage integer from the text after the label,
// skipping artifact tokens. repair additionally maps confused letters back
// to digits first; without it a token carrying letters is rejected rather
// than silently losing them.
func parseReading(s string, repair bool) (int, bool) {
	for _, tok := range strings.Fields(s) {
		tok = strings.Trim(tok, ".,;:")
		if odometerArtifacts[strings.ToLower(tok)] {
			continue
		}
		if repair {
			tok = digitConfusions.Replace(tok)
		}
		if !numberLike(tok) {
			continue
		}
		v, err := strconv.Atoi(strings.ReplaceAll(tok, ",", ""))
		if err != nil || v <= 0 || v > maxOdometer {
			continue
		}
		return v, true
	}
	return 0, false
}

// numberLike accepts digits with optional comma separators, nothing else.
func numberLike(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == ',':
		default:
			return false
		}
	}
	return digits > 0
}
