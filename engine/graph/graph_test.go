package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/LossLensAI/losslens-engine/engine/domain"
	"github.com/LossLensAI/losslens-engine/pkg/repo"
)

var errTxRun = errors.New("tx run fail")

func sampleValuation() Valuation {
	return Valuation{
		ID:              "val-1",
		DocID:           "doc-1",
		VIN:             "5NMSGDAB0EH299128",
		ModelYear:       2014,
		Make:            "Hyundai",
		Model:           "Santa Fe Sport",
		Odometer:        89421,
		Location:        "Austin, TX",
		MarketValue:     10062.32,
		SettlementValue: 9571.88,
		Dialect:         "ccc",
		Confidence:      87.5,
		Warnings:        []string{"field unresolved: location"},
		CreatedAt:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestValuationToMapRoundTrip(t *testing.T) {
	v := sampleValuation()
	got := valuationFromProps(valuationToMap(v))

	if got.ID != v.ID || got.DocID != v.DocID || got.VIN != v.VIN {
		t.Fatalf("identity fields lost: %+v", got)
	}
	if got.ModelYear != v.ModelYear || got.Odometer != v.Odometer {
		t.Fatalf("integer fields lost: %+v", got)
	}
	if got.MarketValue != v.MarketValue || got.SettlementValue != v.SettlementValue {
		t.Fatalf("monetary fields lost: %+v", got)
	}
	if got.Confidence != v.Confidence || got.Dialect != v.Dialect {
		t.Fatalf("score fields lost: %+v", got)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != v.Warnings[0] {
		t.Fatalf("warnings lost: %+v", got.Warnings)
	}
	if !got.CreatedAt.Equal(v.CreatedAt) {
		t.Fatalf("created_at lost: %v", got.CreatedAt)
	}
}

func TestValuationFromProps_NoWarnings(t *testing.T) {
	v := sampleValuation()
	v.Warnings = nil
	got := valuationFromProps(valuationToMap(v))
	if got.Warnings != nil {
		t.Fatalf("expected nil warnings, got %v", got.Warnings)
	}
}

func TestNewValuation(t *testing.T) {
	rec := domain.Record{
		VIN:        "WBAPK5C52AA646103",
		ModelYear:  2010,
		Make:       "BMW",
		Model:      "328i",
		Dialect:    domain.DialectMitchell,
		Confidence: 72,
	}
	at := time.Now()
	v := NewValuation("val-9", "doc-9", rec, at)
	if v.VIN != rec.VIN || v.Make != "BMW" || v.Dialect != "mitchell" {
		t.Fatalf("record fields not carried: %+v", v)
	}
	if !v.HasVehicle() {
		t.Fatal("expected HasVehicle true")
	}
	if v.Vehicle() != (VehicleInfo{Make: "BMW", Model: "328i", Year: 2010}) {
		t.Fatalf("wrong vehicle identity: %+v", v.Vehicle())
	}
}

func TestHasVehicle_Incomplete(t *testing.T) {
	v := Valuation{Make: "BMW", Model: "328i"}
	if v.HasVehicle() {
		t.Fatal("missing year should not count as a vehicle")
	}
}

func TestSaveValuation_Success(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	if err := gs.SaveValuation(context.Background(), sampleValuation()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.closed {
		t.Fatal("session not closed")
	}
	// Merge node plus vehicle link.
	if len(sess.cyphers) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(sess.cyphers))
	}
	if !strings.Contains(sess.cyphers[1], "OF_VEHICLE") {
		t.Fatalf("expected vehicle link, got %q", sess.cyphers[1])
	}
	if sess.params[1]["myID"] != "hyundai-santa-fe-sport-2014" {
		t.Fatalf("wrong model year id: %v", sess.params[1]["myID"])
	}
}

func TestSaveValuation_NoVehicleSkipsLink(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	v := sampleValuation()
	v.Make, v.Model, v.ModelYear = "", "", 0
	if err := gs.SaveValuation(context.Background(), v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sess.cyphers) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(sess.cyphers))
	}
}

func TestSaveValuation_WriteError(t *testing.T) {
	sess := &mockSession{writeErr: errors.New("write fail")}
	gs := NewWithOpener(&mockOpener{session: sess})

	if err := gs.SaveValuation(context.Background(), sampleValuation()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSaveValuation_LinkTxError(t *testing.T) {
	callCount := 0
	sess := &txErrorSession{failAt: 1, count: &callCount}
	gs := NewWithOpener(&mockOpener{session: sess})

	if err := gs.SaveValuation(context.Background(), sampleValuation()); !errors.Is(err, errTxRun) {
		t.Fatalf("expected tx error, got %v", err)
	}
}

func TestGetValuation_FallbackSuccess(t *testing.T) {
	rec := makeNodeRecord(valuationToMap(sampleValuation()))
	sess := &mockSession{runResult: newMockResult(rec)}
	gs := NewWithOpener(&mockOpener{session: sess})

	v, err := gs.GetValuation(context.Background(), "val-1")
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if v.ID != "val-1" || v.Make != "Hyundai" {
		t.Fatalf("wrong valuation: %+v", v)
	}
}

func TestGetValuation_NotFound(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	_, err := gs.GetValuation(context.Background(), "missing")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetValuation_RunError(t *testing.T) {
	sess := &mockSession{runErr: errors.New("run fail")}
	gs := NewWithOpener(&mockOpener{session: sess})

	if _, err := gs.GetValuation(context.Background(), "val-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestListValuations(t *testing.T) {
	recs := []Valuation{sampleValuation(), sampleValuation()}
	recs[1].ID = "val-2"
	sess := &mockSession{runResult: newMockResult(
		makeNodeRecord(valuationToMap(recs[0])),
		makeNodeRecord(valuationToMap(recs[1])),
	)}
	gs := NewWithOpener(&mockOpener{session: sess})

	got, err := gs.ListValuations(context.Background(), repo.ListOpts{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if len(got) != 2 || got[1].ID != "val-2" {
		t.Fatalf("wrong list: %+v", got)
	}
	if sess.params[0]["limit"] != 10 {
		t.Fatalf("limit not passed: %v", sess.params[0])
	}
}

func TestListValuations_DefaultLimit(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	if _, err := gs.ListValuations(context.Background(), repo.ListOpts{}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if sess.params[0]["limit"] != 50 {
		t.Fatalf("expected default limit 50, got %v", sess.params[0]["limit"])
	}
}

func TestFindByVIN(t *testing.T) {
	rec := makeNodeRecord(valuationToMap(sampleValuation()))
	sess := &mockSession{runResult: newMockResult(rec)}
	gs := NewWithOpener(&mockOpener{session: sess})

	got, err := gs.FindByVIN(context.Background(), "5NMSGDAB0EH299128")
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if len(got) != 1 || got[0].VIN != "5NMSGDAB0EH299128" {
		t.Fatalf("wrong result: %+v", got)
	}
	if sess.params[0]["vin"] != "5NMSGDAB0EH299128" {
		t.Fatalf("vin not passed: %v", sess.params[0])
	}
}

func TestFindByVehicle(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	_, err := gs.FindByVehicle(context.Background(), VehicleInfo{Make: "Land Rover", Model: "Range Rover", Year: 2019})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if sess.params[0]["myID"] != "land-rover-range-rover-2019" {
		t.Fatalf("wrong model year id: %v", sess.params[0]["myID"])
	}
}

func TestDeleteValuation(t *testing.T) {
	sess := &mockSession{runResult: newMockResult()}
	gs := NewWithOpener(&mockOpener{session: sess})

	if err := gs.DeleteValuation(context.Background(), "val-1"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if !strings.Contains(sess.cyphers[0], "DETACH DELETE") {
		t.Fatalf("expected detach delete, got %q", sess.cyphers[0])
	}
}
