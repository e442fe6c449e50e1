// Package vin decodes 17-character vehicle identifier codes into the
// manufacturer and model year they encode. The resolver uses it as a fallback
// source of truth when labeled fields are too corrupted to read directly.
package vin

import (
	"time"

	"github.com/LossLensAI/losslens-engine/engine/tables"
)

// yearCodePosition is the 1-based position of the model year code.
const yearCodePosition = 10

// Decoded carries the fields recoverable from an identifier code. A zero
// Manufacturer or ModelYear means the corresponding table lookup missed.
type Decoded struct {
	Manufacturer string
	ModelYear    int
}

// Decoder resolves identifier prefixes and year codes against a table set.
// The reference year pins down the 30-year code cycle; it is fixed at
// construction so decoding stays deterministic for the process lifetime.
type Decoder struct {
	tables  *tables.Tables
	refYear int
}

// NewDecoder builds a Decoder. A zero or negative referenceYear falls back
// to the current calendar year.
func NewDecoder(tbl *tables.Tables, referenceYear int) *Decoder {
	if referenceYear <= 0 {
		referenceYear = time.Now().Year()
	}
	return &Decoder{tables: tbl, refYear: referenceYear}
}

// Decode extracts whatever the tables can recover from id. It never fails;
// unknown prefixes or year codes simply leave their field zero.
func (d *Decoder) Decode(id string) Decoded {
	var out Decoded
	if maker, ok := d.Manufacturer(id); ok {
		out.Manufacturer = maker
	}
	if year, ok := d.ModelYear(id); ok {
		out.ModelYear = year
	}
	return out
}

// Manufacturer resolves the manufacturer from the identifier prefix,
// longest match first.
func (d *Decoder) Manufacturer(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	return d.tables.ManufacturerForPrefix(id)
}

// ModelYear decodes the year code at position 10. Codes repeat every 30
// years, so the candidate is shifted forward by whole cycles as long as it
// stays at most one year past the reference year. One year of headroom
// covers vehicles sold ahead of their model year.
func (d *Decoder) ModelYear(id string) (int, bool) {
	if len(id) < yearCodePosition {
		return 0, false
	}
	base, ok := d.tables.YearBase(id[yearCodePosition-1])
	if !ok {
		return 0, false
	}
	year := base
	for year+tables.YearCycle <= d.refYear+1 {
		year += tables.YearCycle
	}
	return year, true
}

// ReferenceYear reports the year the decoder resolves code cycles against.
func (d *Decoder) ReferenceYear() int { return d.refYear }
