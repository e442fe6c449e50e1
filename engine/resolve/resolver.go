// Package resolve turns OCR text from a total-loss valuation report into a
// structured record. Each field runs its own cascade of strategies, from
// reading a cleanly labeled line down to reconstructing a value from
// fragments, and the tier that produced each field feeds the record's
// confidence score.
package resolve

import (
	"github.com/LossLensAI/losslens-engine/engine/dialect"
	"github.com/LossLensAI/losslens-engine/engine/domain"
	"github.com/LossLensAI/losslens-engine/engine/ocrfix"
	"github.com/LossLensAI/losslens-engine/engine/tables"
	"github.com/LossLensAI/losslens-engine/engine/vin"
)

// Resolver extracts valuation records from report text. It is stateless
// across calls and safe for concurrent use; all lookup data lives in the
// injected tables.
type Resolver struct {
	tables    *tables.Tables
	corrector *ocrfix.Corrector
	decoder   *vin.Decoder
}

// New builds a Resolver on the given tables. A nil tables value selects the
// builtin set. referenceYear anchors model-year decoding; zero means the
// current year.
func New(tbl *tables.Tables, referenceYear int) *Resolver {
	if tbl == nil {
		tbl = tables.Default()
	}
	return &Resolver{
		tables:    tbl,
		corrector: ocrfix.NewCorrector(tbl),
		decoder:   vin.NewDecoder(tbl, referenceYear),
	}
}

// Resolve parses report text into a Record. The only fatal condition is
// input too damaged to carry any signal; every other failure downgrades to
// an unresolved field and a warning on the record.
func (r *Resolver) Resolve(text string) (domain.Record, error) {
	return r.ResolveDocument(domain.NewDocument(text))
}

// ResolveDocument is Resolve for callers that already hold a Document.
func (r *Resolver) ResolveDocument(doc domain.Document) (domain.Record, error) {
	if err := domain.ValidateDocument(doc); err != nil {
		return domain.Record{}, err
	}

	var warnings []string
	d := dialect.Classify(doc)
	if d == domain.DialectUnknown {
		d = domain.DefaultDialect
		warnings = append(warnings, "dialect unrecognized, defaulting to "+string(d))
	}

	st := &state{}
	identifier := r.resolveIdentifier(doc, st)
	vehicle, vehicleWarnings := r.resolveVehicle(doc, d, st)
	warnings = append(warnings, vehicleWarnings...)
	market := r.resolveMarketValue(doc)
	settlement := r.resolveSettlementValue(doc)
	odometer := r.resolveOdometer(doc)
	location := r.resolveLocation(doc)

	outcomes := []Outcome{
		{Field: FieldVIN, Resolved: identifier.OK, Tier: identifier.Tier},
		{Field: FieldYear, Resolved: vehicle.year.OK, Tier: vehicle.year.Tier},
		{Field: FieldMake, Resolved: vehicle.maker.OK, Tier: vehicle.maker.Tier},
		{Field: FieldModel, Resolved: vehicle.model.OK, Tier: vehicle.model.Tier},
		{Field: FieldMarketValue, Resolved: market.OK, Tier: market.Tier},
		{Field: FieldOdometer, Resolved: odometer.OK, Tier: odometer.Tier},
		{Field: FieldSettlementValue, Resolved: settlement.OK, Tier: settlement.Tier},
		{Field: FieldLocation, Resolved: location.OK, Tier: location.Tier},
	}
	for _, o := range outcomes {
		if !o.Resolved {
			warnings = append(warnings, "field unresolved: "+string(o.Field))
		}
	}

	return domain.Record{
		VIN:             identifier.Value,
		ModelYear:       vehicle.year.Value,
		Make:            vehicle.maker.Value,
		Model:           vehicle.model.Value,
		Odometer:        odometer.Value,
		Location:        location.Value,
		MarketValue:     market.Value,
		SettlementValue: settlement.Value,
		Dialect:         d,
		Confidence:      Score(outcomes),
		Warnings:        warnings,
	}, nil
}
