package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/LossLensAI/losslens-engine/engine/domain"
	"github.com/LossLensAI/losslens-engine/engine/graph"
	"github.com/LossLensAI/losslens-engine/engine/resolve"
	"github.com/LossLensAI/losslens-engine/engine/semantic"
	"github.com/LossLensAI/losslens-engine/pkg/metrics"
	"github.com/LossLensAI/losslens-engine/pkg/repo"
)

// valuationStore is the slice of graph.GraphStore the handlers need.
type valuationStore interface {
	GetValuation(ctx context.Context, id string) (graph.Valuation, error)
	ListValuations(ctx context.Context, opts repo.ListOpts) ([]graph.Valuation, error)
	FindByVIN(ctx context.Context, vin string) ([]graph.Valuation, error)
	DeleteValuation(ctx context.Context, id string) error
	NodeCounts(ctx context.Context) (map[string]int64, error)
	TopMakes(ctx context.Context, limit int) ([]graph.MakeStats, error)
	ConfidenceSummary(ctx context.Context, reviewThreshold float64) (graph.ConfidenceStats, error)
}

// similaritySearcher is the slice of semantic.ReviewIndex the handlers need.
type similaritySearcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]semantic.SimilarResult, error)
}

type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type server struct {
	resolver        *resolve.Resolver
	graph           valuationStore
	reviews         similaritySearcher
	embedder        embedder
	reviewThreshold float64
	logger          *slog.Logger

	resolveTotal   *metrics.Counter
	resolveErrors  *metrics.Counter
	resolveSeconds *metrics.Histogram
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResolveRequest is the JSON body for POST /api/resolve.
type ResolveRequest struct {
	Text string `json:"text"`
}

// ResolveResponse is the JSON response for POST /api/resolve.
type ResolveResponse struct {
	Record      domain.Record `json:"record"`
	NeedsReview bool          `json:"needs_review"`
}

// handleResolve resolves report text synchronously without persisting
// anything. Callers that want persistence publish to the message bus instead.
func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.resolveTotal.Inc()

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.resolveErrors.Inc()
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.resolveErrors.Inc()
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	rec, err := s.resolver.Resolve(req.Text)
	if err != nil {
		s.resolveErrors.Inc()
		if errors.Is(err, domain.ErrUnreadableInput) {
			writeError(w, http.StatusUnprocessableEntity, "document text is unreadable")
			return
		}
		s.logger.Error("resolve failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.resolveSeconds.Since(start)

	writeJSON(w, http.StatusOK, ResolveResponse{
		Record:      rec,
		NeedsReview: rec.Confidence < s.reviewThreshold,
	})
}

func (s *server) handleGetValuation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, err := s.graph.GetValuation(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "valuation not found")
			return
		}
		s.logger.Error("get valuation failed", "err", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) handleListValuations(w http.ResponseWriter, r *http.Request) {
	opts := repo.ListOpts{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	vals, err := s.graph.ListValuations(r.Context(), opts)
	if err != nil {
		s.logger.Error("list valuations failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valuations": vals, "count": len(vals)})
}

func (s *server) handleDeleteValuation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.graph.DeleteValuation(r.Context(), id); err != nil {
		s.logger.Error("delete valuation failed", "err", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleFindByVIN(w http.ResponseWriter, r *http.Request) {
	vin := r.PathValue("vin")
	vals, err := s.graph.FindByVIN(r.Context(), vin)
	if err != nil {
		s.logger.Error("find by vin failed", "err", err, "vin", vin)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valuations": vals, "count": len(vals)})
}

// StatsResponse is the JSON response for GET /api/stats.
type StatsResponse struct {
	Nodes      map[string]int64      `json:"nodes"`
	TopMakes   []graph.MakeStats     `json:"top_makes"`
	Confidence graph.ConfidenceStats `json:"confidence"`
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nodes, err := s.graph.NodeCounts(ctx)
	if err != nil {
		s.logger.Error("node counts failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	makes, err := s.graph.TopMakes(ctx, 10)
	if err != nil {
		s.logger.Error("top makes failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	conf, err := s.graph.ConfidenceSummary(ctx, s.reviewThreshold)
	if err != nil {
		s.logger.Error("confidence summary failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Nodes: nodes, TopMakes: makes, Confidence: conf})
}

// SimilarRequest is the JSON body for POST /api/review/similar. Text is
// embedded and matched against indexed review records.
type SimilarRequest struct {
	Text    string            `json:"text"`
	TopK    int               `json:"top_k,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

func (s *server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	embedding, err := s.embedder.Embed(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("embed failed", "err", err)
		writeError(w, http.StatusBadGateway, "embedding service unavailable")
		return
	}
	results, err := s.reviews.SearchSimilar(r.Context(), embedding, req.TopK, req.Filters)
	if err != nil {
		s.logger.Error("similarity search failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
