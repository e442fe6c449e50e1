package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LossLensAI/losslens-engine/engine/graph"
	"github.com/LossLensAI/losslens-engine/engine/resolve"
	"github.com/LossLensAI/losslens-engine/engine/semantic"
	"github.com/LossLensAI/losslens-engine/pkg/metrics"
	"github.com/LossLensAI/losslens-engine/pkg/repo"
)

type fakeStore struct {
	valuations map[string]graph.Valuation
	listErr    error
	deleted    []string
}

func (f *fakeStore) GetValuation(_ context.Context, id string) (graph.Valuation, error) {
	v, ok := f.valuations[id]
	if !ok {
		return graph.Valuation{}, fmt.Errorf("Valuation: %w", repo.ErrNotFound)
	}
	return v, nil
}

func (f *fakeStore) ListValuations(_ context.Context, opts repo.ListOpts) ([]graph.Valuation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []graph.Valuation
	for _, v := range f.valuations {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeStore) FindByVIN(_ context.Context, vin string) ([]graph.Valuation, error) {
	var out []graph.Valuation
	for _, v := range f.valuations {
		if v.VIN == vin {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteValuation(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.valuations, id)
	return nil
}

func (f *fakeStore) NodeCounts(_ context.Context) (map[string]int64, error) {
	return map[string]int64{"Valuation": int64(len(f.valuations))}, nil
}

func (f *fakeStore) TopMakes(_ context.Context, limit int) ([]graph.MakeStats, error) {
	return []graph.MakeStats{{Name: "Hyundai", Models: 1, Valuations: 2}}, nil
}

func (f *fakeStore) ConfidenceSummary(_ context.Context, threshold float64) (graph.ConfidenceStats, error) {
	return graph.ConfidenceStats{Count: int64(len(f.valuations)), Mean: 80}, nil
}

type fakeSearcher struct {
	results []semantic.SimilarResult
	err     error
}

func (f *fakeSearcher) SearchSimilar(_ context.Context, _ []float32, _ int, _ map[string]string) ([]semantic.SimilarResult, error) {
	return f.results, f.err
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, 0.5}, nil
}

func newTestServer(store *fakeStore) *server {
	met := metrics.New()
	return &server{
		resolver:        resolve.New(nil, 2026),
		graph:           store,
		reviews:         &fakeSearcher{},
		embedder:        &fakeEmbedder{},
		reviewThreshold: 60,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		resolveTotal:    met.Counter("api_resolve_total", "t"),
		resolveErrors:   met.Counter("api_resolve_errors_total", "t"),
		resolveSeconds:  met.Histogram("api_resolve_seconds", "t", nil),
	}
}

func newTestMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/resolve", s.handleResolve)
	mux.HandleFunc("GET /api/valuations", s.handleListValuations)
	mux.HandleFunc("GET /api/valuations/{id}", s.handleGetValuation)
	mux.HandleFunc("DELETE /api/valuations/{id}", s.handleDeleteValuation)
	mux.HandleFunc("GET /api/valuations/vin/{vin}", s.handleFindByVIN)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/review/similar", s.handleSimilar)
	return mux
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fakeStore{})
	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestHandleResolve(t *testing.T) {
	s := newTestServer(&fakeStore{})
	payload := `{"text":"CCC ONE Market Valuation Report\nLoss vehicle: 2014 Hyundai Santa Fe Sport\nVIN: 5XYZT3LB0EG123456\nMarket Value $10,062.32"}`
	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("POST", "/api/resolve", strings.NewReader(payload)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp ResolveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Record.VIN != "5XYZT3LB0EG123456" {
		t.Errorf("vin = %q", resp.Record.VIN)
	}
	if resp.Record.Make != "Hyundai" {
		t.Errorf("make = %q", resp.Record.Make)
	}
}

func TestHandleResolve_BadRequests(t *testing.T) {
	s := newTestServer(&fakeStore{})
	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{bad`, http.StatusBadRequest},
		{"missing text", `{}`, http.StatusBadRequest},
		{"unreadable text", `{"text":"..."}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestMux(s).ServeHTTP(w, httptest.NewRequest("POST", "/api/resolve", strings.NewReader(tc.body)))
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestHandleGetValuation(t *testing.T) {
	store := &fakeStore{valuations: map[string]graph.Valuation{
		"rec-1": {ID: "rec-1", DocID: "claim-1", VIN: "5XYZT3LB0EG123456", Make: "Hyundai"},
	}}
	s := newTestServer(store)

	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("GET", "/api/valuations/rec-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var v graph.Valuation
	json.NewDecoder(w.Body).Decode(&v)
	if v.ID != "rec-1" || v.Make != "Hyundai" {
		t.Errorf("valuation = %+v", v)
	}

	w = httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("GET", "/api/valuations/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", w.Code)
	}
}

func TestHandleListValuations(t *testing.T) {
	store := &fakeStore{valuations: map[string]graph.Valuation{
		"a": {ID: "a"}, "b": {ID: "b"},
	}}
	s := newTestServer(store)

	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("GET", "/api/valuations?limit=10", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestHandleListValuations_Error(t *testing.T) {
	s := newTestServer(&fakeStore{listErr: errors.New("neo4j down")})
	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("GET", "/api/valuations", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestHandleDeleteValuation(t *testing.T) {
	store := &fakeStore{valuations: map[string]graph.Valuation{"rec-1": {ID: "rec-1"}}}
	s := newTestServer(store)

	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("DELETE", "/api/valuations/rec-1", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "rec-1" {
		t.Errorf("deleted = %v", store.deleted)
	}
}

func TestHandleFindByVIN(t *testing.T) {
	store := &fakeStore{valuations: map[string]graph.Valuation{
		"a": {ID: "a", VIN: "5XYZT3LB0EG123456"},
		"b": {ID: "b", VIN: "OTHER"},
	}}
	s := newTestServer(store)

	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("GET", "/api/valuations/vin/5XYZT3LB0EG123456", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

func TestHandleStats(t *testing.T) {
	store := &fakeStore{valuations: map[string]graph.Valuation{"a": {ID: "a"}}}
	s := newTestServer(store)

	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("GET", "/api/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp StatsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Nodes["Valuation"] != 1 {
		t.Errorf("nodes = %v", resp.Nodes)
	}
	if len(resp.TopMakes) != 1 || resp.TopMakes[0].Name != "Hyundai" {
		t.Errorf("top makes = %v", resp.TopMakes)
	}
}

func TestHandleSimilar(t *testing.T) {
	s := newTestServer(&fakeStore{})
	s.reviews = &fakeSearcher{results: []semantic.SimilarResult{
		{RecordID: "rec-9", Score: 0.93, Make: "Hyundai"},
	}}

	w := httptest.NewRecorder()
	body := `{"text":"2014 Hyundai Santa Fe Sport","top_k":5}`
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("POST", "/api/review/similar", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Count int `json:"count"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

func TestHandleSimilar_EmbedderDown(t *testing.T) {
	s := newTestServer(&fakeStore{})
	s.embedder = &fakeEmbedder{err: errors.New("connection refused")}

	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest("POST", "/api/review/similar", strings.NewReader(`{"text":"x"}`)))
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("LOSSLENS_TEST_KEY", "set")
	if got := envOr("LOSSLENS_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("envOr = %q", got)
	}
	if got := envOr("LOSSLENS_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("envOr = %q", got)
	}
}

func TestEnvFloatOr(t *testing.T) {
	t.Setenv("LOSSLENS_TEST_FLOAT", "72.5")
	if got := envFloatOr("LOSSLENS_TEST_FLOAT", 60); got != 72.5 {
		t.Errorf("envFloatOr = %v", got)
	}
	t.Setenv("LOSSLENS_TEST_FLOAT", "junk")
	if got := envFloatOr("LOSSLENS_TEST_FLOAT", 60); got != 60 {
		t.Errorf("envFloatOr junk = %v", got)
	}
}
