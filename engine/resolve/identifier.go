package resolve

import (
	"regexp"
	"strings"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

// identifierLabelRe matches the labeled identifier line, tolerating the
// usual OCR damage to the label itself (1 for I, pipe for I, glued colon).
var identifierLabelRe = regexp.MustCompile(`(?i)^\s*v[i1l|][n1]\s*[:\-#]?\s*(.+)$`)

// Normalized token lengths worth treating as identifier candidates. Merge
// artifacts grow a 17-character code to 19, truncation shrinks it to 15.
const (
	candidateLengthMin = 15
	candidateLengthMax = 19
)

// resolveIdentifier finds the identifier code in the document. A clean code
// on a labeled line is the direct tier; anything that needed correction, or
// that turned up as a bare token, counts as tolerant. The winning code is
// stored in the run state for the cross-field fallback.
func (r *Resolver) resolveIdentifier(doc domain.Document, st *state) domain.Resolution[string] {
	// Labeled lines first, in document order. The joined remainder is
	// tried before its individual tokens so injected whitespace inside
	// the code does not split the candidate.
	for _, line := range doc.Lines() {
		m := identifierLabelRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		remainder := strings.TrimSpace(m[1])
		candidates := append([]string{remainder}, strings.Fields(remainder)...)
		if res, ok := r.firstValidIdentifier(candidates, "labeled-line"); ok {
			st.identifier = res.Value
			return res
		}
	}

	// Bare token scan, document order. Never the direct tier.
	for _, line := range doc.Lines() {
		if res, ok := r.firstValidIdentifier(strings.Fields(line), "bare-token"); ok {
			if res.Tier == domain.TierDirect {
				res = domain.Resolved(res.Value, domain.TierTolerant, res.Strategy)
			}
			st.identifier = res.Value
			return res
		}
	}

	return domain.Unresolved[string]()
}

// firstValidIdentifier tries each candidate as-is and then corrected,
// returning the first that validates. Candidates outside the plausible
// length band are skipped so unrelated words never get truncated into a
// code shape.
func (r *Resolver) firstValidIdentifier(candidates []string, origin string) (domain.Resolution[string], bool) {
	for _, cand := range candidates {
		clean := normalizeToken(cand)
		if n := len(clean); n < candidateLengthMin || n > candidateLengthMax {
			continue
		}
		if domain.ValidateVIN(clean) == nil {
			return domain.Resolved(clean, domain.TierDirect, origin), true
		}
		corrected, applied := r.corrector.Identifier(cand)
		if applied && domain.ValidateVIN(corrected) == nil {
			return domain.Resolved(corrected, domain.TierTolerant, origin+"+corrected"), true
		}
	}
	return domain.Unresolved[string](), false
}

// normalizeToken uppercases and strips everything outside A-Z0-9.
func normalizeToken(tok string) string {
	var b strings.Builder
	b.Grow(len(tok))
	for _, r := range strings.ToUpper(tok) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
