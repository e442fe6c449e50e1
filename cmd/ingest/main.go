// Command ingest consumes assembled OCR text from NATS and runs it through
// the resolution pipeline into Neo4j and Qdrant.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/LossLensAI/losslens-engine/engine/enrich"
	"github.com/LossLensAI/losslens-engine/engine/graph"
	"github.com/LossLensAI/losslens-engine/engine/ingest"
	"github.com/LossLensAI/losslens-engine/engine/resolve"
	"github.com/LossLensAI/losslens-engine/engine/semantic"
	"github.com/LossLensAI/losslens-engine/pkg/metrics"
	"github.com/LossLensAI/losslens-engine/pkg/natsutil"
	"github.com/LossLensAI/losslens-engine/pkg/ollama"
	"github.com/LossLensAI/losslens-engine/pkg/resilience"
)

var met = metrics.New()

// Resolution metrics
var (
	mDocsTotal    = func(dialect string) *metrics.Counter { return met.Counter(metrics.WithLabels("losslens_resolve_docs_total", "dialect", dialect), "Documents resolved") }
	mErrorsTotal  = met.Counter("losslens_resolve_errors_total", "Documents that failed resolution")
	mReviewTotal  = met.Counter("losslens_resolve_review_total", "Records flagged for human review")
	mDedupHits    = met.Counter("losslens_resolve_dedup_hits_total", "Documents skipped as duplicates")
	mConfidence   = met.Histogram("losslens_resolve_confidence", "Confidence of resolved records", []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})
	mUnresolved   = met.Counter("losslens_resolve_fields_unresolved_total", "Fields left unresolved across records")
	mStageSeconds = func(stage string) *metrics.Histogram {
		return met.Histogram(metrics.WithLabels("losslens_resolve_stage_seconds", "stage", stage), "Per-stage duration", nil)
	}
	mResolvedLast = met.Gauge("losslens_resolve_last_timestamp", "Epoch of last resolved document")
)

const vectorDims = 768 // nomic-embed-text

func main() {
	var (
		natsURL     = flag.String("nats", nats.DefaultURL, "NATS server URL")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		ollamaModel = flag.String("model", "nomic-embed-text", "Ollama embedding model")
		neo4jURL    = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser   = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass   = flag.String("neo4j-pass", "losslens123", "Neo4j password")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "valuations-review", "Qdrant collection name")
		threshold   = flag.Float64("threshold", ingest.DefaultReviewThreshold, "confidence below this goes to review")
		refYear     = flag.Int("reference-year", 0, "model-year decoding anchor (0 = current year)")
		verify      = flag.Bool("verify", false, "cross-check records against the vPIC registry")
		metricsPort = flag.Int("metrics-port", 9091, "Prometheus metrics port")
	)
	flag.Parse()

	// Start metrics server with runtime collection
	met.CollectRuntime("losslens_resolve", 15*time.Second)
	met.ServeAsync(*metricsPort)

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Connect Neo4j
	driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
	if err != nil {
		log.Error("neo4j connect failed", "error", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Error("neo4j verify failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Neo4j")

	// Connect Qdrant
	reviews, err := semantic.New(*qdrantAddr, *collection)
	if err != nil {
		log.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer reviews.Close()
	if err := reviews.EnsureCollection(ctx, vectorDims); err != nil {
		log.Error("qdrant ensure collection failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Qdrant", "collection", *collection, "dims", vectorDims)

	// Ollama embedder
	embedder := ollama.NewEmbedClient(*ollamaURL, *ollamaModel)
	log.Info("using Ollama embeddings", "model", *ollamaModel)

	// Connect NATS
	nc, err := nats.Connect(*natsURL, nats.Name("losslens-ingest"))
	if err != nil {
		log.Error("nats connect failed", "error", err)
		os.Exit(1)
	}
	defer nc.Drain()
	log.Info("connected to NATS", "url", *natsURL)

	// Dedup map
	var mu sync.Mutex
	seen := make(map[string]bool)

	deps := ingest.Deps{
		Resolver: resolve.New(nil, *refYear),
		Graph:    graph.New(driver),
		Reviews:  reviews,
		Embedder: embedder,
		DeduplicateF: func(_ context.Context, docID string) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			if seen[docID] {
				mDedupHits.Inc()
				return true, nil
			}
			seen[docID] = true
			return false, nil
		},
		Breaker: resilience.NewBreaker(resilience.BreakerOpts{
			FailThreshold: 5,
			Timeout:       30 * time.Second,
		}),
		StageSeconds: func(stage string, seconds float64) {
			mStageSeconds(stage).Observe(seconds)
		},
		ReviewThreshold: *threshold,
		Logger:          log,
	}
	if *verify {
		deps.Verifier = enrich.NewVerifier()
		log.Info("vPIC verification enabled")
	}

	sub, err := ingest.StartConsumer(nc, deps)
	if err != nil {
		log.Error("consumer start failed", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	// Track outcomes for metrics off the resolved/review announcements.
	resolvedSub, err := natsutil.Subscribe(nc, ingest.ResolvedSubject, func(_ context.Context, doc ingest.ResolvedDoc) {
		mDocsTotal(string(doc.Record.Dialect)).Inc()
		mConfidence.Observe(doc.Record.Confidence)
		for _, w := range doc.Record.Warnings {
			if strings.HasPrefix(w, "field unresolved") {
				mUnresolved.Inc()
			}
		}
		mResolvedLast.Set(time.Now().Unix())
	})
	if err != nil {
		log.Error("resolved subscribe failed", "error", err)
		os.Exit(1)
	}
	defer resolvedSub.Unsubscribe()

	reviewSub, err := natsutil.Subscribe(nc, ingest.ReviewSubject, func(_ context.Context, _ ingest.ResolvedDoc) {
		mReviewTotal.Inc()
	})
	if err != nil {
		log.Error("review subscribe failed", "error", err)
		os.Exit(1)
	}
	defer reviewSub.Unsubscribe()

	dlqSub, err := nc.Subscribe(ingest.DLQSubject, func(_ *nats.Msg) {
		mErrorsTotal.Inc()
	})
	if err != nil {
		log.Error("dlq subscribe failed", "error", err)
		os.Exit(1)
	}
	defer dlqSub.Unsubscribe()

	log.Info("resolution worker running",
		"subject", ingest.DocsSubject,
		"threshold", *threshold,
	)

	<-ctx.Done()
	log.Info("shutting down")
}
