package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateVIN_Valid(t *testing.T) {
	cases := []string{
		"5YJ3E1EA1NF123456",
		"1HGCM82633A004352",
		"WBA8E9G59GNT43123",
		"5xyzt3lb0eg123456", // lowercase is normalized
	}
	for _, vin := range cases {
		if err := ValidateVIN(vin); err != nil {
			t.Errorf("expected valid for %q, got %v", vin, err)
		}
	}
}

func TestValidateVIN_Invalid(t *testing.T) {
	cases := []string{
		"",
		"SHORT",
		"5YJ3E1EA1NF1234567", // 18 chars
		"5YJ3E1EA1IF123456",  // contains I
		"5YJ3E1EA1OF123456",  // contains O
		"5YJ3E1EA1QF123456",  // contains Q
		"5YJ3E1EA1NF12345 ",  // trailing space
	}
	for _, vin := range cases {
		if !errors.Is(ValidateVIN(vin), ErrInvalidVIN) {
			t.Errorf("expected ErrInvalidVIN for %q", vin)
		}
	}
}

func TestValidateDocument_Readable(t *testing.T) {
	doc := NewDocument("2014 HYUNDAI SANTA FE SPORT\nVIN: 5XYZT3LB0EG123456")
	if err := ValidateDocument(doc); err != nil {
		t.Errorf("expected readable document, got %v", err)
	}
}

func TestValidateDocument_Unreadable(t *testing.T) {
	cases := []string{
		"",
		"   \n\t\n  ",
		"a b c", // below the readable floor
	}
	for _, text := range cases {
		err := ValidateDocument(NewDocument(text))
		if !errors.Is(err, ErrUnreadableInput) {
			t.Errorf("expected ErrUnreadableInput for %q, got %v", text, err)
		}
	}
}

func TestValidateRecord_Valid(t *testing.T) {
	cases := []Record{
		{Dialect: DialectCCC, Confidence: 0},
		{Dialect: DialectMitchell, Confidence: 100},
		{VIN: "5XYZT3LB0EG123456", ModelYear: 2014, Make: "Hyundai", Model: "Santa Fe Sport", Dialect: DialectCCC, Confidence: 87},
	}
	for _, r := range cases {
		if err := ValidateRecord(r); err != nil {
			t.Errorf("expected valid for %+v, got %v", r, err)
		}
	}
}

func TestValidateRecord_InvalidVIN(t *testing.T) {
	r := Record{VIN: "NOTAVIN", Dialect: DialectCCC, Confidence: 50}
	if !errors.Is(ValidateRecord(r), ErrInvalidVIN) {
		t.Error("expected ErrInvalidVIN")
	}
}

func TestValidateRecord_YearOutOfRange(t *testing.T) {
	for _, year := range []int{1901, 1979, 2040} {
		r := Record{ModelYear: year, Dialect: DialectCCC, Confidence: 50}
		if !errors.Is(ValidateRecord(r), ErrYearOutOfRange) {
			t.Errorf("expected ErrYearOutOfRange for %d", year)
		}
	}
}

func TestValidateRecord_ConfidenceOutOfRange(t *testing.T) {
	for _, c := range []float64{-0.01, 100.5} {
		r := Record{Dialect: DialectCCC, Confidence: c}
		if !errors.Is(ValidateRecord(r), ErrConfidenceOutOfRange) {
			t.Errorf("expected ErrConfidenceOutOfRange for %v", c)
		}
	}
}

func TestValidateRecord_UnknownDialect(t *testing.T) {
	r := Record{Dialect: DialectUnknown, Confidence: 50}
	if !errors.Is(ValidateRecord(r), ErrUnknownDialect) {
		t.Error("expected ErrUnknownDialect: unknown must be defaulted before validation")
	}
}

func TestResolutionError_Unwrap(t *testing.T) {
	re := NewResolutionError("vin", "NOTAVIN", ErrInvalidVIN)
	if !errors.Is(re, ErrInvalidVIN) {
		t.Errorf("Unwrap should expose ErrInvalidVIN")
	}
	var target *ResolutionError
	if !errors.As(re, &target) {
		t.Errorf("errors.As should work for *ResolutionError")
	}
	if target.Field != "vin" {
		t.Errorf("expected field=vin, got %s", target.Field)
	}
}

func TestNewDocument_Normalization(t *testing.T) {
	doc := NewDocument("line one\r\nline two  \rline three\t")
	want := []string{"line one", "line two", "line three"}
	got := doc.Lines()
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestNewDocumentFromLines_Copies(t *testing.T) {
	src := []string{"alpha", "beta"}
	doc := NewDocumentFromLines(src)
	src[0] = "mutated"
	if doc.Lines()[0] != "alpha" {
		t.Error("document must not alias the caller's slice")
	}
}

func TestDocument_Text(t *testing.T) {
	text := "one\ntwo\nthree"
	if got := NewDocument(text).Text(); got != text {
		t.Errorf("expected round-trip text, got %q", got)
	}
}

func TestTier_String(t *testing.T) {
	cases := map[Tier]string{
		TierDirect:        "direct",
		TierTolerant:      "tolerant",
		TierCrossField:    "cross-field",
		TierReconstructed: "reconstructed",
		Tier(99):          "unknown",
	}
	for tier, want := range cases {
		if got := tier.String(); got != want {
			t.Errorf("Tier(%d).String() = %q, want %q", tier, got, want)
		}
	}
}

func TestResolved_Unresolved(t *testing.T) {
	r := Resolved("Hyundai", TierDirect, "labeled-line")
	if !r.OK || r.Value != "Hyundai" || r.Tier != TierDirect {
		t.Errorf("unexpected resolution: %+v", r)
	}
	u := Unresolved[string]()
	if u.OK || u.Value != "" {
		t.Errorf("unresolved should be zero: %+v", u)
	}
	if strings.TrimSpace(r.Strategy) == "" {
		t.Error("resolved value should carry its strategy name")
	}
}
