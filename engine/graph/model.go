// Package graph persists resolved valuation records into a Neo4j knowledge
// graph. Records hang off a Make → VehicleModel → ModelYear hierarchy so
// reviewers can browse valuations by vehicle.
package graph

import (
	"time"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

// Valuation is the persisted form of a resolved record. ID is generated by
// the ingest worker; the record fields are stored verbatim.
type Valuation struct {
	ID              string    `json:"id"`
	DocID           string    `json:"doc_id"`
	VIN             string    `json:"vin,omitempty"`
	ModelYear       int       `json:"model_year,omitempty"`
	Make            string    `json:"make,omitempty"`
	Model           string    `json:"model,omitempty"`
	Odometer        int       `json:"odometer,omitempty"`
	Location        string    `json:"location,omitempty"`
	MarketValue     float64   `json:"market_value,omitempty"`
	SettlementValue float64   `json:"settlement_value,omitempty"`
	Dialect         string    `json:"dialect"`
	Confidence      float64   `json:"confidence"`
	Warnings        []string  `json:"warnings,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewValuation builds a Valuation from a resolved record.
func NewValuation(id, docID string, rec domain.Record, at time.Time) Valuation {
	return Valuation{
		ID:              id,
		DocID:           docID,
		VIN:             rec.VIN,
		ModelYear:       rec.ModelYear,
		Make:            rec.Make,
		Model:           rec.Model,
		Odometer:        rec.Odometer,
		Location:        rec.Location,
		MarketValue:     rec.MarketValue,
		SettlementValue: rec.SettlementValue,
		Dialect:         string(rec.Dialect),
		Confidence:      rec.Confidence,
		Warnings:        rec.Warnings,
		CreatedAt:       at,
	}
}

// HasVehicle reports whether the valuation carries enough vehicle identity
// to anchor it in the Make→VehicleModel→ModelYear hierarchy.
func (v Valuation) HasVehicle() bool {
	return v.Make != "" && v.Model != "" && v.ModelYear > 0
}

// Vehicle returns the vehicle identity of the valuation.
func (v Valuation) Vehicle() VehicleInfo {
	return VehicleInfo{Make: v.Make, Model: v.Model, Year: v.ModelYear}
}

// Make represents a vehicle manufacturer.
type Make struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// VehicleModel represents a specific model produced by a make.
type VehicleModel struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	MakeID string `json:"make_id"`
}

// ModelYear represents a specific year of a vehicle make/model.
type ModelYear struct {
	ID    string `json:"id"`
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
}

// VehicleInfo holds the vehicle identity a valuation anchors to.
type VehicleInfo struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}
