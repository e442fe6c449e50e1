// Package tables holds the static lookup data the resolution engine depends
// on: identifier prefix to manufacturer mappings, model year codes, known OCR
// corruptions of manufacturer names, the canonical manufacturer list, and the
// per-manufacturer submodel reconstruction rules.
//
// A Tables value is built once at startup and never mutated. Components
// receive it as a constructor dependency rather than reaching for globals, so
// tests can swap in small fixture sets.
package tables

import (
	"fmt"
	"sort"
	"strings"
)

// YearCycle is the period of the model year code alphabet. The same code
// letter repeats every 30 years, so decoding needs a reference year.
const YearCycle = 30

// identifierAlphabet are the characters allowed in identifier codes and in
// table keys derived from them. I, O and Q are excluded.
const identifierAlphabet = "ABCDEFGHJKLMNPRSTUVWXYZ0123456789"

// SubmodelRule reconstructs a submodel name from a bare digit adjacent to a
// qualifying keyword, e.g. digit "3" near "competition" for BMW yields "M3".
// Rules are data so new manufacturers are table entries, not code changes.
type SubmodelRule struct {
	Manufacturer string   `yaml:"manufacturer"`
	Marker       string   `yaml:"marker"`
	Keywords     []string `yaml:"keywords"`
}

// Data is the raw content a Tables set is built from. It is the schema of
// the optional YAML overlay file as well.
type Data struct {
	Prefixes      map[string]string `yaml:"prefixes"`
	YearCodes     map[string]int    `yaml:"year_codes"`
	Variants      map[string]string `yaml:"variants"`
	Manufacturers []string          `yaml:"manufacturers"`
	Submodels     []SubmodelRule    `yaml:"submodels"`
}

// Tables is the immutable lookup set shared by the decoder and resolver.
type Tables struct {
	prefixes      map[string]string
	yearCodes     map[byte]int
	variants      map[string]string
	manufacturers []string // longest name first
	submodels     map[string]SubmodelRule
	maxPrefixLen  int
}

// New validates d and builds a Tables set from it.
func New(d Data) (*Tables, error) {
	t := &Tables{
		prefixes:  make(map[string]string, len(d.Prefixes)),
		yearCodes: make(map[byte]int, len(d.YearCodes)),
		variants:  make(map[string]string, len(d.Variants)),
		submodels: make(map[string]SubmodelRule, len(d.Submodels)),
	}

	for prefix, maker := range d.Prefixes {
		p := strings.ToUpper(prefix)
		if len(p) < 1 || len(p) > 3 {
			return nil, fmt.Errorf("tables: prefix %q must be 1-3 characters", prefix)
		}
		if !alphabetValid(p) {
			return nil, fmt.Errorf("tables: prefix %q contains characters outside the identifier alphabet", prefix)
		}
		if maker == "" {
			return nil, fmt.Errorf("tables: prefix %q maps to an empty manufacturer", prefix)
		}
		t.prefixes[p] = maker
		if len(p) > t.maxPrefixLen {
			t.maxPrefixLen = len(p)
		}
	}

	for code, base := range d.YearCodes {
		c := strings.ToUpper(code)
		if len(c) != 1 || !alphabetValid(c) {
			return nil, fmt.Errorf("tables: year code %q must be a single identifier character", code)
		}
		if base < 1950 || base > 2100 {
			return nil, fmt.Errorf("tables: year code %q base year %d out of range", code, base)
		}
		t.yearCodes[c[0]] = base
	}

	for corrupt, canonical := range d.Variants {
		if corrupt == "" || canonical == "" {
			return nil, fmt.Errorf("tables: variant entry %q -> %q has an empty side", corrupt, canonical)
		}
		t.variants[strings.ToLower(corrupt)] = canonical
	}

	seen := make(map[string]bool, len(d.Manufacturers))
	for _, name := range d.Manufacturers {
		if name == "" {
			return nil, fmt.Errorf("tables: empty manufacturer name")
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		t.manufacturers = append(t.manufacturers, name)
	}
	// Longest first so multi-word names win prefix matching. Ties break
	// alphabetically to keep iteration order deterministic.
	sort.Slice(t.manufacturers, func(i, j int) bool {
		a, b := t.manufacturers[i], t.manufacturers[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	for _, rule := range d.Submodels {
		if rule.Manufacturer == "" || rule.Marker == "" || len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("tables: submodel rule for %q is incomplete", rule.Manufacturer)
		}
		kws := make([]string, len(rule.Keywords))
		for i, kw := range rule.Keywords {
			kws[i] = strings.ToLower(kw)
		}
		t.submodels[strings.ToLower(rule.Manufacturer)] = SubmodelRule{
			Manufacturer: rule.Manufacturer,
			Marker:       rule.Marker,
			Keywords:     kws,
		}
	}

	return t, nil
}

// Default returns the built-in table set. The builtin data is known valid,
// so like regexp.MustCompile this panics rather than returning an error.
func Default() *Tables {
	t, err := New(Builtin())
	if err != nil {
		panic("tables: builtin data invalid: " + err.Error())
	}
	return t
}

// ManufacturerForPrefix resolves the manufacturer encoded in the leading
// characters of an identifier code. The longest matching prefix wins.
func (t *Tables) ManufacturerForPrefix(id string) (string, bool) {
	maker, _, ok := t.PrefixMatch(id)
	return maker, ok
}

// PrefixMatch is ManufacturerForPrefix plus the length of the matched prefix,
// which the noise corrector uses to protect prefix characters from further
// substitution.
func (t *Tables) PrefixMatch(id string) (string, int, bool) {
	id = strings.ToUpper(id)
	max := t.maxPrefixLen
	if len(id) < max {
		max = len(id)
	}
	for n := max; n >= 1; n-- {
		if maker, ok := t.prefixes[id[:n]]; ok {
			return maker, n, true
		}
	}
	return "", 0, false
}

// YearBase returns the first cycle year for a position-10 year code.
func (t *Tables) YearBase(code byte) (int, bool) {
	base, ok := t.yearCodes[upperByte(code)]
	return base, ok
}

// CanonicalVariant maps a known OCR corruption of a manufacturer name to the
// canonical name. The lookup is case-insensitive.
func (t *Tables) CanonicalVariant(token string) (string, bool) {
	canonical, ok := t.variants[strings.ToLower(strings.TrimSpace(token))]
	return canonical, ok
}

// Manufacturers returns the canonical manufacturer names ordered longest
// first. The returned slice is a copy.
func (t *Tables) Manufacturers() []string {
	out := make([]string, len(t.manufacturers))
	copy(out, t.manufacturers)
	return out
}

// SubmodelRuleFor returns the reconstruction rule for a manufacturer, if any.
func (t *Tables) SubmodelRuleFor(manufacturer string) (SubmodelRule, bool) {
	rule, ok := t.submodels[strings.ToLower(manufacturer)]
	return rule, ok
}

func alphabetValid(s string) bool {
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(identifierAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
