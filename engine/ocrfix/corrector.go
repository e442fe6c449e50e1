// Package ocrfix repairs OCR damage in tokens pulled from scanned valuation
// reports. Corrections are character-level heuristics tuned to the confusions
// the scan pipeline actually produces: digit/letter swaps inside identifier
// codes, mangled manufacturer names, and monetary strings that lost their
// decimal point or grew a corrupted currency digit.
package ocrfix

import (
	"math/bits"
	"strings"

	"github.com/LossLensAI/losslens-engine/engine/tables"
)

// Hint tells the corrector what kind of token it is looking at.
type Hint int

const (
	// HintIdentifier marks a candidate 17-character identifier code.
	HintIdentifier Hint = iota
	// HintManufacturer marks a manufacturer name token.
	HintManufacturer
	// HintNumeric marks a monetary digit string.
	HintNumeric
)

func (h Hint) String() string {
	switch h {
	case HintIdentifier:
		return "identifier"
	case HintManufacturer:
		return "manufacturer"
	case HintNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// confusionAlternatives are the optional digit/letter swaps attempted while
// repairing an identifier prefix. Both directions appear in scans.
var confusionAlternatives = map[byte]byte{
	'6': 'B',
	'B': '6',
	'8': 'V',
	'V': '8',
}

// illegalLetters never occur in a valid identifier, so mapping them to the
// digits they were misread from is always safe.
var illegalLetters = map[byte]byte{
	'I': '1',
	'O': '0',
	'Q': '0',
}

// Corrector applies context-specific OCR repairs. It is stateless apart from
// the read-only lookup tables and safe for concurrent use.
type Corrector struct {
	tables *tables.Tables
}

// NewCorrector builds a Corrector over the given table set.
func NewCorrector(tbl *tables.Tables) *Corrector {
	return &Corrector{tables: tbl}
}

// Correct repairs token according to hint. The boolean reports whether the
// returned string differs from the input.
func (c *Corrector) Correct(token string, hint Hint) (string, bool) {
	switch hint {
	case HintIdentifier:
		return c.Identifier(token)
	case HintManufacturer:
		return c.Manufacturer(token)
	case HintNumeric:
		return c.Numeric(token)
	default:
		return token, false
	}
}

// Identifier repairs a candidate identifier code. The prefix window is fixed
// first against the manufacturer prefix table so that legitimate letters
// there survive (a "B" completing a known prefix is kept, not downgraded),
// then merge artifacts and illegal letters are rewritten in the remainder.
// Results longer than 17 characters are truncated. The caller still has to
// length- and alphabet-validate the result.
func (c *Corrector) Identifier(token string) (string, bool) {
	s := normalizeIdentifier(token)
	s, protected := c.repairPrefix(s)

	head, tail := s[:protected], s[protected:]
	// A merged "IFF" or "IF" is always a misread "9": the letter I cannot
	// occur in a valid code. Longest artifact first.
	tail = strings.ReplaceAll(tail, "IFF", "9")
	tail = strings.ReplaceAll(tail, "IF", "9")
	tail = mapIllegalLetters(tail)
	s = head + tail

	if len(s) > 17 {
		s = s[:17]
	}
	return s, s != token
}

// repairPrefix tries to line the leading window up with a known manufacturer
// prefix, preferring the fewest substitutions. It returns the repaired
// string and how many leading characters are protected from later rewrites.
// When nothing matches, the input is returned untouched so the general
// substitutions get their chance at the whole string.
func (c *Corrector) repairPrefix(s string) (string, int) {
	n := 3
	if len(s) < n {
		n = len(s)
	}
	if n == 0 {
		return s, 0
	}

	window := []byte(s[:n])
	for i := range window {
		if d, ok := illegalLetters[window[i]]; ok {
			window[i] = d
		}
	}

	for _, mask := range substitutionMasks(n) {
		cand := make([]byte, n)
		copy(cand, window)
		feasible := true
		for i := 0; i < n; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			alt, ok := confusionAlternatives[cand[i]]
			if !ok {
				feasible = false
				break
			}
			cand[i] = alt
		}
		if !feasible {
			continue
		}
		if _, matched, ok := c.tables.PrefixMatch(string(cand)); ok {
			return string(cand[:matched]) + s[matched:], matched
		}
	}
	return s, 0
}

// substitutionMasks enumerates the 2^n window substitution masks ordered by
// how many positions they touch, so untouched windows are tried first.
func substitutionMasks(n int) []int {
	masks := make([]int, 0, 1<<n)
	for count := 0; count <= n; count++ {
		for m := 0; m < 1<<n; m++ {
			if bits.OnesCount(uint(m)) == count {
				masks = append(masks, m)
			}
		}
	}
	return masks
}

// Manufacturer maps a known corruption of a manufacturer name to its
// canonical form. Unknown tokens pass through unchanged.
func (c *Corrector) Manufacturer(token string) (string, bool) {
	if canonical, ok := c.tables.CanonicalVariant(token); ok {
		return canonical, canonical != token
	}
	return token, false
}

// Numeric repairs a monetary digit string. Currency symbols and grouping
// separators are stripped; if no decimal point survived, one is inserted
// before the last two digits, and a leading 3, 4 or 5 on a 7+ digit string
// is dropped first as a corrupted currency symbol. The drop has to happen
// before the insertion or the cents shift by a digit.
func (c *Corrector) Numeric(token string) (string, bool) {
	s := normalizeNumeric(token)
	if s == "" {
		return token, false
	}
	if !strings.Contains(s, ".") {
		if len(s) >= 7 && (s[0] == '3' || s[0] == '4' || s[0] == '5') {
			s = s[1:]
		}
		if len(s) >= 6 {
			s = s[:len(s)-2] + "." + s[len(s)-2:]
		}
	}
	return s, s != token
}

func normalizeIdentifier(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range strings.ToUpper(token) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeNumeric(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func mapIllegalLetters(s string) string {
	b := []byte(s)
	changed := false
	for i := range b {
		if d, ok := illegalLetters[b[i]]; ok {
			b[i] = d
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
