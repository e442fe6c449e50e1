// Package semantic maintains the review similarity index in Qdrant.
// Low-confidence valuations are embedded and indexed so a reviewer looking
// at one questionable document can pull up similar ones already handled.
package semantic

import (
	"fmt"
	"strings"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

// ReviewEntry is one indexed valuation.
type ReviewEntry struct {
	RecordID   string
	Embedding  []float32
	VIN        string
	Make       string
	Model      string
	ModelYear  int
	Dialect    string
	Confidence float64
	Warnings   []string
}

// NewReviewEntry builds an entry from a resolved record.
func NewReviewEntry(recordID string, embedding []float32, rec domain.Record) ReviewEntry {
	return ReviewEntry{
		RecordID:   recordID,
		Embedding:  embedding,
		VIN:        rec.VIN,
		Make:       rec.Make,
		Model:      rec.Model,
		ModelYear:  rec.ModelYear,
		Dialect:    string(rec.Dialect),
		Confidence: rec.Confidence,
		Warnings:   rec.Warnings,
	}
}

// SimilarResult is a single similarity hit against the review index.
type SimilarResult struct {
	RecordID   string  `json:"record_id"`
	Score      float32 `json:"score"`
	VIN        string  `json:"vin,omitempty"`
	Make       string  `json:"make,omitempty"`
	Model      string  `json:"model,omitempty"`
	ModelYear  int     `json:"model_year,omitempty"`
	Confidence float64 `json:"confidence"`
}

// EmbeddingText linearizes a record into the text that gets embedded. Kept
// deterministic so re-indexing the same record produces the same vector.
func EmbeddingText(rec domain.Record) string {
	parts := make([]string, 0, 6)
	if rec.ModelYear > 0 {
		parts = append(parts, fmt.Sprintf("%d", rec.ModelYear))
	}
	if rec.Make != "" {
		parts = append(parts, rec.Make)
	}
	if rec.Model != "" {
		parts = append(parts, rec.Model)
	}
	if rec.VIN != "" {
		parts = append(parts, rec.VIN)
	}
	parts = append(parts, string(rec.Dialect))
	if len(rec.Warnings) > 0 {
		parts = append(parts, strings.Join(rec.Warnings, "; "))
	}
	return strings.Join(parts, " ")
}
