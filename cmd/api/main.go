// Package main implements the LossLens API server: synchronous resolution
// of valuation report text plus read access to persisted valuations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/LossLensAI/losslens-engine/engine/graph"
	"github.com/LossLensAI/losslens-engine/engine/resolve"
	"github.com/LossLensAI/losslens-engine/engine/semantic"
	"github.com/LossLensAI/losslens-engine/pkg/metrics"
	"github.com/LossLensAI/losslens-engine/pkg/mid"
	"github.com/LossLensAI/losslens-engine/pkg/ollama"
	"github.com/LossLensAI/losslens-engine/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port            string
	Neo4jURL        string
	Neo4jUser       string
	Neo4jPass       string
	QdrantURL       string
	Collection      string
	OllamaURL       string
	EmbedModel      string
	CORSOrigin      string
	ReviewThreshold float64
	RateLimit       float64
}

func loadConfig() Config {
	return Config{
		Port:            envOr("PORT", "8080"),
		Neo4jURL:        envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:       envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:       envOr("NEO4J_PASS", "password"),
		QdrantURL:       envOr("QDRANT_URL", "localhost:6334"),
		Collection:      envOr("QDRANT_COLLECTION", "valuations-review"),
		OllamaURL:       envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:      envOr("EMBED_MODEL", "nomic-embed-text"),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
		ReviewThreshold: envFloatOr("REVIEW_THRESHOLD", 60),
		RateLimit:       envFloatOr("RATE_LIMIT_RPS", 50),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Neo4j ---
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)

	graphStore := graph.New(neo4jDriver)

	// --- Connect to Qdrant ---
	reviews, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer reviews.Close()

	embedder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel)

	// --- Build resolver and metrics ---
	resolver := resolve.New(nil, 0)
	met := metrics.New()

	api := &server{
		resolver:        resolver,
		graph:           graphStore,
		reviews:         reviews,
		embedder:        embedder,
		reviewThreshold: cfg.ReviewThreshold,
		logger:          logger,
		resolveTotal:    met.Counter("api_resolve_total", "Resolution requests served"),
		resolveErrors:   met.Counter("api_resolve_errors_total", "Resolution requests that failed"),
		resolveSeconds:  met.Histogram("api_resolve_seconds", "Resolution latency", nil),
	}

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", api.handleHealth)
	mux.HandleFunc("POST /api/resolve", api.handleResolve)
	mux.HandleFunc("GET /api/valuations", api.handleListValuations)
	mux.HandleFunc("GET /api/valuations/{id}", api.handleGetValuation)
	mux.HandleFunc("DELETE /api/valuations/{id}", api.handleDeleteValuation)
	mux.HandleFunc("GET /api/valuations/vin/{vin}", api.handleFindByVIN)
	mux.HandleFunc("GET /api/stats", api.handleStats)
	mux.HandleFunc("POST /api/review/similar", api.handleSimilar)
	mux.Handle("GET /metrics", met.Handler())

	limiter := resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.RateLimit, Burst: int(cfg.RateLimit) * 2})
	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Throttle(limiter),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("losslens-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
