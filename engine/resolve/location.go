package resolve

import (
	"regexp"
	"strings"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

var locationDirectRe = regexp.MustCompile(`(?i)^\s*(?:loss\s+)?location(?:\s+of\s+loss)?\s*[:\-]?\s*(.+)$`)

var locationLabels = []string{
	"location of loss",
	"loss location",
	"location",
}

func (r *Resolver) resolveLocation(doc domain.Document) domain.Resolution[string] {
	return runCascade(doc, []strategy[string]{
		{
			name: "labeled-location",
			tier: domain.TierDirect,
			run:  directLocation,
		},
		{
			name: "tolerant-location",
			tier: domain.TierTolerant,
			run:  tolerantLocation,
		},
	})
}

func directLocation(doc domain.Document) (string, bool) {
	for _, line := range doc.Lines() {
		m := locationDirectRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if loc := cleanLocation(m[1]); loc != "" {
			return loc, true
		}
	}
	return "", false
}

func tolerantLocation(doc domain.Document) (string, bool) {
	for _, line := range doc.Lines() {
		folded := foldLabelText(line)
		end, ok := folded.find(locationLabels)
		if !ok {
			continue
		}
		if loc := cleanLocation(line[end:]); loc != "" {
			return loc, true
		}
	}
	return "", false
}

// cleanLocation trims a place span down to the text itself: cut at the
// first pipe, collapse whitespace, drop punctuation-only edge tokens, and
// require at least two letters so stray marks never pass as a place.
func cleanLocation(s string) string {
	if i := strings.IndexByte(s, '|'); i >= 0 {
		s = s[:i]
	}
	fields := strings.Fields(s)
	for len(fields) > 0 && !tokenHasAlnum(fields[len(fields)-1]) {
		fields = fields[:len(fields)-1]
	}
	for len(fields) > 0 && !tokenHasAlnum(fields[0]) {
		fields = fields[1:]
	}
	loc := strings.Trim(strings.Join(fields, " "), " -:,")
	if letterCount(loc) < 2 {
		return ""
	}
	return loc
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			n++
		}
	}
	return n
}

func tokenHasAlnum(tok string) bool {
	return letterCount(tok) > 0 || digitCount(tok) > 0
}
