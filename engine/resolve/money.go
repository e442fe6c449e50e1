package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

// Label sets for the two monetary fields, longest first so the match end
// lands after the whole label. Base-value labels are a denylist: a base
// figure must never be read as the market value, even when nothing else
// resolves.
var (
	marketLabels = []string{
		"adjusted vehicle value",
		"actual cash value",
		"total loss value",
		"adjusted value",
		"market value",
	}
	baseLabels = []string{
		"base vehicle value",
		"base value",
	}
	settlementLabels = []string{
		"settlement amount",
		"settlement value",
		"total settlement",
		"net settlement",
	}
)

// amountLookahead bounds how many following lines may hold the figure when
// a label ends a line, as in two-column layouts.
const amountLookahead = 3

// currencyAmountRe recognizes a dollars-and-cents token without a sign.
var currencyAmountRe = regexp.MustCompile(`^\d[\d,]*\.\d{2}$`)

func (r *Resolver) resolveMarketValue(doc domain.Document) domain.Resolution[float64] {
	return r.resolveAmount(doc, marketLabels, baseLabels)
}

func (r *Resolver) resolveSettlementValue(doc domain.Document) domain.Resolution[float64] {
	return r.resolveAmount(doc, settlementLabels, nil)
}

// resolveAmount runs the two-rung monetary cascade: exact label with a
// currency token on the same line, then confusion-folded labels with a
// bounded lookahead for the figure.
func (r *Resolver) resolveAmount(doc domain.Document, labels, exclude []string) domain.Resolution[float64] {
	return runCascade(doc, []strategy[float64]{
		{
			name: "labeled-amount",
			tier: domain.TierDirect,
			run:  func(doc domain.Document) (float64, bool) { return r.directAmount(doc, labels, exclude) },
		},
		{
			name: "tolerant-amount",
			tier: domain.TierTolerant,
			run:  func(doc domain.Document) (float64, bool) { return r.tolerantAmount(doc, labels, exclude) },
		},
	})
}

// directAmount wants a clean label and a clean figure on one line.
func (r *Resolver) directAmount(doc domain.Document, labels, exclude []string) (float64, bool) {
	for _, line := range doc.Lines() {
		lower := strings.ToLower(line)
		if containsAnyLabel(lower, exclude) {
			continue
		}
		end, ok := findLabelEnd(lower, labels)
		if !ok {
			continue
		}
		if amount, ok := r.firstAmount(line[end:], true); ok {
			return amount, true
		}
	}
	return 0, false
}

// tolerantAmount folds lines and labels into confusion classes before
// matching, so "Tota1 L0ss Va1ue" still finds its label. The figure may sit
// on the label line or within the lookahead window below it.
func (r *Resolver) tolerantAmount(doc domain.Document, labels, exclude []string) (float64, bool) {
	lines := doc.Lines()
	for i, line := range lines {
		folded := foldLabelText(line)
		if _, ok := folded.find(exclude); ok {
			continue
		}
		end, ok := folded.find(labels)
		if !ok {
			continue
		}
		if amount, ok := r.firstAmount(line[end:], false); ok {
			return amount, true
		}
		for j := i + 1; j < len(lines) && j <= i+amountLookahead; j++ {
			if amount, ok := r.firstAmount(lines[j], true); ok {
				return amount, true
			}
		}
	}
	return 0, false
}

// firstAmount scans tokens for a figure. Strict mode accepts only tokens
// that look like currency; loose mode takes any token with enough digits,
// leaving the numeric corrector to undo lost separators.
func (r *Resolver) firstAmount(s string, strict bool) (float64, bool) {
	for _, tok := range strings.Fields(s) {
		if !strings.ContainsAny(tok, "0123456789") {
			continue
		}
		if strict && !looksCurrency(tok) {
			continue
		}
		if !strict && !strings.ContainsRune(tok, '$') && digitCount(tok) < 2 {
			continue
		}
		cleaned, _ := r.corrector.Numeric(tok)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || f <= 0 {
			continue
		}
		return f, true
	}
	return 0, false
}

func looksCurrency(tok string) bool {
	tok = strings.Trim(tok, "(),;:")
	if strings.HasPrefix(tok, "$") {
		return true
	}
	return currencyAmountRe.MatchString(tok)
}

func digitCount(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

func containsAnyLabel(lower string, labels []string) bool {
	for _, lbl := range labels {
		if strings.Contains(lower, lbl) {
			return true
		}
	}
	return false
}

// findLabelEnd returns the byte offset just past the first matching label.
func findLabelEnd(lower string, labels []string) (int, bool) {
	for _, lbl := range labels {
		if idx := strings.Index(lower, lbl); idx >= 0 {
			return idx + len(lbl), true
		}
	}
	return 0, false
}

// foldedLine is a line reduced to lowercase confusion classes, with a map
// back to the original byte offsets.
type foldedLine struct {
	text string
	pos  []int
}

// foldLabelText lowercases and collapses the confusable characters onto one
// representative each, dropping everything that is not a letter or digit.
// Matching folded text against folded labels tolerates the same damage the
// corrector repairs, including merged words.
func foldLabelText(s string) foldedLine {
	var b strings.Builder
	b.Grow(len(s))
	pos := make([]int, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		switch c {
		case 'l', '|', '1':
			c = 'i'
		case '0':
			c = 'o'
		case '6':
			c = 'b'
		case '8':
			c = 'v'
		}
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			b.WriteByte(c)
			pos = append(pos, i)
		}
	}
	return foldedLine{text: b.String(), pos: pos}
}

// find locates the first label in the folded text and returns the offset
// just past its end in the original line.
func (f foldedLine) find(labels []string) (int, bool) {
	for _, lbl := range labels {
		needle := foldLabelText(lbl).text
		if needle == "" {
			continue
		}
		if idx := strings.Index(f.text, needle); idx >= 0 {
			return f.pos[idx+len(needle)-1] + 1, true
		}
	}
	return 0, false
}
