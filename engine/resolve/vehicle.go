package resolve

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

// Labeled vehicle-description lines per dialect.
var vehicleDirectRe = map[domain.Dialect]*regexp.Regexp{
	domain.DialectCCC:      regexp.MustCompile(`(?i)^\s*loss\s+vehicle\s*[:\-]?\s*(.+)$`),
	domain.DialectMitchell: regexp.MustCompile(`(?i)^\s*vehicle\s*[:\-]?\s*((?:19|20)\d{2}\s+.+)$`),
}

// Mitchell also labels the three fields on separate lines.
var (
	mitchellYearRe  = regexp.MustCompile(`(?i)^\s*year\s*[:\-]?\s*((?:19|20)\d{2})\b`)
	mitchellMakeRe  = regexp.MustCompile(`(?i)^\s*make\s*[:\-]?\s*(.+)$`)
	mitchellModelRe = regexp.MustCompile(`(?i)^\s*model\s*[:\-]?\s*(.+)$`)
)

// vehicleTolerantRe covers the enumerated label corruptions: dropped leading
// character, zero for o, one for i, and merged words.
var vehicleTolerantRe = regexp.MustCompile(`(?i)^\s*(?:[il1|]?[o0]ss\s*veh[i1]cle)\s*[:\-]?\s*(.+)$`)

// yearLeadRe matches an unlabeled "2014 Hyundai Santa Fe Sport" style line.
var yearLeadRe = regexp.MustCompile(`^\s*((?:19|20)\d{2})\s+([A-Za-z].+)$`)

// yearPrefixRe splits a leading model year off a vehicle span.
var yearPrefixRe = regexp.MustCompile(`^((?:19|20)\d{2})\s+(.+)$`)

// submodelAdjacency is how many characters a bare digit may sit from a rule
// keyword and still count as adjacent.
const submodelAdjacency = 16

// vehicleResult groups the year, manufacturer and model resolutions that the
// combined field-group cascade produces.
type vehicleResult struct {
	year  domain.Resolution[int]
	maker domain.Resolution[string]
	model domain.Resolution[string]
}

func (v *vehicleResult) complete() bool {
	return v.year.OK && v.maker.OK && v.model.OK
}

// resolveVehicle runs the combined year/manufacturer/model cascade. Later
// strategies only fill fields earlier ones left open, so each field keeps
// the tier of the strategy that actually produced it.
func (r *Resolver) resolveVehicle(doc domain.Document, d domain.Dialect, st *state) (vehicleResult, []string) {
	var res vehicleResult
	var warnings []string

	steps := []func(){
		func() { r.vehicleFromLabel(doc, d, &res, &warnings) },
		func() { r.vehicleFromTolerantLabel(doc, &res, &warnings) },
		func() { r.vehicleFromYearLead(doc, &res) },
		func() { r.vehicleFromIdentifier(&res, st) },
		func() { r.vehicleFromSubmodelRule(doc, &res, &warnings) },
	}
	for _, step := range steps {
		if res.complete() {
			break
		}
		step()
	}

	if res.maker.OK {
		st.maker = res.maker.Value
	}
	return res, warnings
}

// vehicleFromLabel is the direct tier: the dialect's own labeled line.
func (r *Resolver) vehicleFromLabel(doc domain.Document, d domain.Dialect, res *vehicleResult, warnings *[]string) {
	re := vehicleDirectRe[d]
	if re != nil {
		for _, line := range doc.Lines() {
			if m := re.FindStringSubmatch(line); m != nil {
				r.fillFromSpan(res, m[1], domain.TierDirect, "labeled-line", true, warnings)
				break
			}
		}
	}
	if d == domain.DialectMitchell {
		r.fillFromMitchellTriple(doc, res)
	}
}

// fillFromMitchellTriple reads the separate Year / Make / Model lines.
func (r *Resolver) fillFromMitchellTriple(doc domain.Document, res *vehicleResult) {
	for _, line := range doc.Lines() {
		if !res.year.OK {
			if m := mitchellYearRe.FindStringSubmatch(line); m != nil {
				if year, err := strconv.Atoi(m[1]); err == nil && yearInRange(year) {
					res.year = domain.Resolved(year, domain.TierDirect, "labeled-triple")
				}
			}
		}
		if !res.maker.OK {
			if m := mitchellMakeRe.FindStringSubmatch(line); m != nil {
				name := strings.TrimSpace(m[1])
				if canonical, ok := r.tables.CanonicalVariant(name); ok {
					name = canonical
				}
				if name != "" {
					res.maker = domain.Resolved(name, domain.TierDirect, "labeled-triple")
				}
			}
		}
		if !res.model.OK {
			if m := mitchellModelRe.FindStringSubmatch(line); m != nil {
				if model := cleanModel(m[1]); model != "" {
					res.model = domain.Resolved(model, domain.TierDirect, "labeled-triple")
				}
			}
		}
	}
}

// vehicleFromTolerantLabel retries the labeled line with corrupted labels.
func (r *Resolver) vehicleFromTolerantLabel(doc domain.Document, res *vehicleResult, warnings *[]string) {
	for _, line := range doc.Lines() {
		if m := vehicleTolerantRe.FindStringSubmatch(line); m != nil {
			r.fillFromSpan(res, m[1], domain.TierTolerant, "tolerant-label", true, warnings)
			return
		}
	}
}

// vehicleFromYearLead accepts an unlabeled year-first line, but only when
// the text after the year names a canonical manufacturer. Without a label
// the first-token fallback would be guesswork.
func (r *Resolver) vehicleFromYearLead(doc domain.Document, res *vehicleResult) {
	for _, line := range doc.Lines() {
		m := yearLeadRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		maker, model, mode := r.splitMakeModel(m[2])
		if mode == splitFallback || mode == splitNone {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		if !res.year.OK && yearInRange(year) {
			res.year = domain.Resolved(year, domain.TierTolerant, "year-lead")
		}
		if !res.maker.OK {
			res.maker = domain.Resolved(maker, domain.TierTolerant, "year-lead")
		}
		if !res.model.OK && model != "" {
			res.model = domain.Resolved(model, domain.TierTolerant, "year-lead")
		}
		return
	}
}

// vehicleFromIdentifier decodes the identifier found elsewhere in the text.
func (r *Resolver) vehicleFromIdentifier(res *vehicleResult, st *state) {
	if st.identifier == "" {
		return
	}
	decoded := r.decoder.Decode(st.identifier)
	if !res.maker.OK && decoded.Manufacturer != "" {
		res.maker = domain.Resolved(decoded.Manufacturer, domain.TierCrossField, "identifier-decode")
	}
	if !res.year.OK && decoded.ModelYear != 0 && yearInRange(decoded.ModelYear) {
		res.year = domain.Resolved(decoded.ModelYear, domain.TierCrossField, "identifier-decode")
	}
}

// vehicleFromSubmodelRule rebuilds the model from a bare digit next to a
// qualifying keyword, once the manufacturer is known. Always flagged: the
// result is a reconstruction, not a reading.
func (r *Resolver) vehicleFromSubmodelRule(doc domain.Document, res *vehicleResult, warnings *[]string) {
	if res.model.OK || !res.maker.OK {
		return
	}
	rule, ok := r.tables.SubmodelRuleFor(res.maker.Value)
	if !ok {
		return
	}
	for _, line := range doc.Lines() {
		digit, found := digitNearKeyword(line, rule.Keywords)
		if !found {
			continue
		}
		model := rule.Marker + digit
		res.model = domain.Resolved(model, domain.TierReconstructed, "submodel-rule")
		*warnings = append(*warnings, fmt.Sprintf("model %q reconstructed from fragments", model))
		return
	}
}

// digitNearKeyword reports the first single-digit token within the adjacency
// window of any keyword occurrence on the line.
func digitNearKeyword(line string, keywords []string) (string, bool) {
	lower := strings.ToLower(line)
	var spans [][2]int
	for _, kw := range keywords {
		from := 0
		for {
			idx := strings.Index(lower[from:], kw)
			if idx < 0 {
				break
			}
			start := from + idx
			spans = append(spans, [2]int{start, start + len(kw)})
			from = start + len(kw)
		}
	}
	if len(spans) == 0 {
		return "", false
	}
	for _, off := range singleDigitOffsets(line) {
		for _, span := range spans {
			if off >= span[0]-submodelAdjacency && off <= span[1]+submodelAdjacency {
				return string(line[off]), true
			}
		}
	}
	return "", false
}

// singleDigitOffsets returns the byte offsets of whitespace-delimited tokens
// that reduce to a single digit once edge punctuation is trimmed.
func singleDigitOffsets(line string) []int {
	var offs []int
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		start := i
		for i < len(line) && line[i] != ' ' && line[i] != '\t' {
			i++
		}
		tok := strings.Trim(line[start:i], ".,;:|()")
		if len(tok) == 1 && tok[0] >= '0' && tok[0] <= '9' {
			offs = append(offs, start+strings.IndexByte(line[start:i], tok[0]))
		}
	}
	return offs
}

// fillFromSpan parses a "2014 Hyundai Santa Fe Sport | ..." span and fills
// whatever fields are still open. allowFallback permits the first-token
// manufacturer guess, which is only safe under a label.
func (r *Resolver) fillFromSpan(res *vehicleResult, span string, tier domain.Tier, name string, allowFallback bool, warnings *[]string) {
	year, rest := parseVehicleSpan(span)
	if !res.year.OK && yearInRange(year) {
		res.year = domain.Resolved(year, tier, name)
	}
	if rest == "" {
		return
	}

	maker, model, mode := r.splitMakeModel(rest)
	switch mode {
	case splitNone:
		return
	case splitFallback:
		if !allowFallback {
			return
		}
		*warnings = append(*warnings, fmt.Sprintf("manufacturer %q not in canonical list, used first token", maker))
	}

	makerTier := tier
	if mode != splitDirect && makerTier < domain.TierTolerant {
		makerTier = domain.TierTolerant
	}
	if !res.maker.OK && maker != "" {
		res.maker = domain.Resolved(maker, makerTier, name)
	}
	if !res.model.OK && model != "" {
		res.model = domain.Resolved(model, makerTier, name)
	}
}

// parseVehicleSpan trims a span at the first pipe and splits off a leading
// four-digit year when present.
func parseVehicleSpan(span string) (int, string) {
	if i := strings.IndexByte(span, '|'); i >= 0 {
		span = span[:i]
	}
	span = strings.Join(strings.Fields(span), " ")
	m := yearPrefixRe.FindStringSubmatch(span)
	if m == nil {
		return 0, span
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, span
	}
	return year, m[2]
}

type splitMode int

const (
	splitNone splitMode = iota
	splitDirect
	splitVariant
	splitFallback
)

// splitMakeModel splits a combined manufacturer+model span. Canonical names
// are tried longest first so "Land Rover Discovery" never truncates to
// "Land"; then the variant table repairs a corrupted leading name; the
// first-token fallback is the last resort and the caller decides whether to
// trust it.
func (r *Resolver) splitMakeModel(span string) (maker, model string, mode splitMode) {
	span = strings.Join(strings.Fields(span), " ")
	if span == "" {
		return "", "", splitNone
	}
	lower := strings.ToLower(span)

	for _, name := range r.tables.Manufacturers() {
		ln := strings.ToLower(name)
		if lower == ln {
			return name, "", splitDirect
		}
		if strings.HasPrefix(lower, ln+" ") {
			return name, cleanModel(span[len(ln):]), splitDirect
		}
	}

	fields := strings.Fields(span)
	for k := min(3, len(fields)); k >= 1; k-- {
		if canonical, ok := r.tables.CanonicalVariant(strings.Join(fields[:k], " ")); ok {
			return canonical, cleanModel(strings.Join(fields[k:], " ")), splitVariant
		}
	}

	return fields[0], cleanModel(strings.Join(fields[1:], " ")), splitFallback
}

// cleanModel trims separators and OCR artifacts from a model span.
func cleanModel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -|:")
}

func yearInRange(year int) bool {
	return year >= domain.MinModelYear && year <= domain.MaxModelYear
}
