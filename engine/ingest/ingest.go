// Package ingest runs OCR'd valuation documents through resolution and
// fan-out: validate, resolve into a structured record, verify against the
// federal VIN registry, persist to the knowledge graph, and index
// low-confidence records for human review.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/LossLensAI/losslens-engine/engine/domain"
	"github.com/LossLensAI/losslens-engine/engine/graph"
	"github.com/LossLensAI/losslens-engine/engine/resolve"
	"github.com/LossLensAI/losslens-engine/engine/semantic"
	"github.com/LossLensAI/losslens-engine/pkg/fn"
	"github.com/LossLensAI/losslens-engine/pkg/natsutil"
	"github.com/LossLensAI/losslens-engine/pkg/resilience"
)

const (
	// ScansSubject carries page images awaiting OCR.
	ScansSubject = "valuation.scans"
	// ProgressSubject carries per-page OCR progress events.
	ProgressSubject = "valuation.pages.progress"
	// DocsSubject carries assembled document text from OCR workers.
	DocsSubject = "valuation.docs.text"
	// DLQSubject is the dead letter queue for documents that keep failing.
	DLQSubject = "valuation.docs.text.dlq"
	// ResolvedSubject announces every successfully resolved record.
	ResolvedSubject = "valuation.records.resolved"
	// ReviewSubject announces records whose confidence fell below the
	// review threshold.
	ReviewSubject = "valuation.records.review"
	// MaxRetries before sending a document to the DLQ.
	MaxRetries = 3
	// DefaultReviewThreshold is the confidence score below which a record
	// is queued for human review.
	DefaultReviewThreshold = 60.0
)

// GraphWriter persists resolved valuations. *graph.GraphStore satisfies it.
type GraphWriter interface {
	SaveValuation(ctx context.Context, v graph.Valuation) error
	EnsureVehicleHierarchy(ctx context.Context, vi graph.VehicleInfo) error
}

// ReviewIndexer stores review entries for similarity search.
// *semantic.ReviewIndex satisfies it.
type ReviewIndexer interface {
	Index(ctx context.Context, entries []semantic.ReviewEntry) error
}

// Embedder turns review text into a vector. *ollama.EmbedClient satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RecordVerifier cross-checks a record against an external source and
// returns warnings for disagreements. *enrich.Verifier satisfies it.
type RecordVerifier interface {
	Verify(ctx context.Context, rec domain.Record) ([]string, error)
}

// Deps holds the external dependencies for the resolution pipeline. Resolver
// is required; everything else degrades gracefully when nil.
type Deps struct {
	Resolver *resolve.Resolver
	Graph    GraphWriter
	Reviews  ReviewIndexer
	Embedder Embedder
	Verifier RecordVerifier
	// DeduplicateF returns true when the document was already resolved.
	DeduplicateF func(ctx context.Context, docID string) (bool, error)
	// Breaker, when set, guards graph writes so a down Neo4j sheds load
	// fast instead of timing out every message.
	Breaker *resilience.Breaker
	// StageSeconds, when set, receives each stage's wall time.
	StageSeconds func(stage string, seconds float64)
	// ReviewThreshold overrides DefaultReviewThreshold when positive.
	ReviewThreshold float64
	Logger          *slog.Logger
	// Now is replaceable for tests; nil means time.Now.
	Now func() time.Time
}

func (d Deps) threshold() float64 {
	if d.ReviewThreshold > 0 {
		return d.ReviewThreshold
	}
	return DefaultReviewThreshold
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// --- Pipeline Stages ---

// Validate rejects messages that cannot identify a document.
var Validate fn.Stage[DocumentMessage, DocumentMessage] = func(_ context.Context, msg DocumentMessage) fn.Result[DocumentMessage] {
	if msg.DocID == "" {
		return fn.Err[DocumentMessage](errors.New("document message missing doc_id"))
	}
	return fn.Ok(msg)
}

// NewResolve creates the stage that turns document text into a record. The
// resolver owns readability checks; an unreadable document fails the stage.
func NewResolve(deps Deps) fn.Stage[DocumentMessage, ResolvedDoc] {
	return func(_ context.Context, msg DocumentMessage) fn.Result[ResolvedDoc] {
		rec, err := deps.Resolver.Resolve(msg.Text)
		if err != nil {
			return fn.Err[ResolvedDoc](fmt.Errorf("resolve %s: %w", msg.DocID, err))
		}
		return fn.Ok(ResolvedDoc{
			DocID:       msg.DocID,
			RecordID:    RecordID(msg.DocID),
			Record:      rec,
			NeedsReview: rec.Confidence < deps.threshold(),
		})
	}
}

// NewVerify creates the stage that cross-checks the record against the VIN
// registry. Registry disagreement adds warnings; registry unavailability is
// logged and skipped, never fatal.
func NewVerify(deps Deps) fn.Stage[ResolvedDoc, ResolvedDoc] {
	log := deps.logger()
	return func(ctx context.Context, doc ResolvedDoc) fn.Result[ResolvedDoc] {
		if deps.Verifier == nil {
			return fn.Ok(doc)
		}
		warnings, err := deps.Verifier.Verify(ctx, doc.Record)
		if err != nil {
			log.Warn("ingest: vin verification unavailable", "error", err, "doc_id", doc.DocID)
			return fn.Ok(doc)
		}
		if len(warnings) > 0 {
			doc.Record.Warnings = append(doc.Record.Warnings, warnings...)
			doc.NeedsReview = true
		}
		return fn.Ok(doc)
	}
}

// NewPersist creates the stage that writes the valuation to the knowledge
// graph and links it into the vehicle hierarchy.
func NewPersist(deps Deps) fn.Stage[ResolvedDoc, ResolvedDoc] {
	log := deps.logger()
	return func(ctx context.Context, doc ResolvedDoc) fn.Result[ResolvedDoc] {
		if deps.Graph == nil {
			return fn.Ok(doc)
		}
		v := graph.NewValuation(doc.RecordID, doc.DocID, doc.Record, deps.now())
		if v.HasVehicle() {
			if err := deps.Graph.EnsureVehicleHierarchy(ctx, v.Vehicle()); err != nil {
				// Hierarchy trouble must not lose the valuation itself.
				log.Warn("ingest: vehicle hierarchy", "error", err, "doc_id", doc.DocID)
			}
		}
		save := func(ctx context.Context) error {
			return deps.Graph.SaveValuation(ctx, v)
		}
		var err error
		if deps.Breaker != nil {
			err = deps.Breaker.Call(ctx, save)
		} else {
			err = save(ctx)
		}
		if err != nil {
			return fn.Err[ResolvedDoc](fmt.Errorf("graph save: %w", err))
		}
		return fn.Ok(doc)
	}
}

// NewIndexReview creates the stage that embeds and indexes low-confidence
// records so reviewers can find similar past cases.
func NewIndexReview(deps Deps) fn.Stage[ResolvedDoc, ResolvedDoc] {
	return func(ctx context.Context, doc ResolvedDoc) fn.Result[ResolvedDoc] {
		if !doc.NeedsReview || deps.Reviews == nil || deps.Embedder == nil {
			return fn.Ok(doc)
		}
		embedding, err := deps.Embedder.Embed(ctx, semantic.EmbeddingText(doc.Record))
		if err != nil {
			return fn.Err[ResolvedDoc](fmt.Errorf("embed record %s: %w", doc.RecordID, err))
		}
		entry := semantic.NewReviewEntry(doc.RecordID, embedding, doc.Record)
		if err := deps.Reviews.Index(ctx, []semantic.ReviewEntry{entry}); err != nil {
			return fn.Err[ResolvedDoc](fmt.Errorf("review index: %w", err))
		}
		return fn.Ok(doc)
	}
}

// LoggedTap returns a stage that logs entry/exit with duration and feeds the
// duration to observe when non-nil.
func LoggedTap[T any](name string, log *slog.Logger, observe func(stage string, seconds float64)) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Info("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			d := time.Since(start)
			log.Info("stage.exit", "stage", name, "duration", d)
			if observe != nil {
				observe(name, d.Seconds())
			}
		}()
		return fn.Ok(t)
	}
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NewPipeline composes the full resolution pipeline:
// Validate → Resolve → Verify → Persist → IndexReview.
func NewPipeline(deps Deps) fn.Stage[DocumentMessage, ResolvedDoc] {
	log := deps.logger()

	obs := deps.StageSeconds
	validated := fn.Then(LoggedTap[DocumentMessage]("validate", log, obs), fn.TracedStage("ingest.validate", Validate))
	resolved := fn.Then(validated, fn.Then(LoggedTap[DocumentMessage]("resolve", log, obs), fn.TracedStage("ingest.resolve", NewResolve(deps))))
	verified := fn.Then(resolved, fn.Then(LoggedTap[ResolvedDoc]("verify", log, obs), fn.TracedStage("ingest.verify", NewVerify(deps))))
	persisted := fn.Then(verified, fn.Then(LoggedTap[ResolvedDoc]("persist", log, obs), fn.TracedStage("ingest.persist", NewPersist(deps))))
	indexed := fn.Then(persisted, fn.Then(LoggedTap[ResolvedDoc]("index", log, obs), fn.TracedStage("ingest.index", NewIndexReview(deps))))

	return indexed
}

// dlqMessage is published to the DLQ on repeated or unrecoverable failure.
type dlqMessage struct {
	Doc     DocumentMessage `json:"doc"`
	Error   string          `json:"error"`
	Retries int             `json:"retries"`
}

// StartConsumer subscribes to incoming document text and runs each message
// through the pipeline. Transient failures are re-published with a retry
// header up to MaxRetries; unreadable documents go straight to the DLQ since
// retrying cannot fix them. Resolved records are announced on
// ResolvedSubject, and review-flagged records additionally on ReviewSubject.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.logger()

	return nc.Subscribe(DocsSubject, func(msg *nats.Msg) {
		var docMsg DocumentMessage
		if err := json.Unmarshal(msg.Data, &docMsg); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		if deps.DeduplicateF != nil {
			exists, err := deps.DeduplicateF(ctx, docMsg.DocID)
			if err != nil {
				log.Warn("ingest: dedup check failed", "error", err)
			} else if exists {
				log.Info("ingest: skipping duplicate", "doc_id", docMsg.DocID)
				if msg.Reply != "" {
					_ = msg.Ack()
				}
				return
			}
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, docMsg)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"error", pipeErr,
				"doc_id", docMsg.DocID,
				"retry", retries,
			)

			// Unreadable input is deterministic; retrying re-runs the same
			// failure, so skip straight to the DLQ.
			if retries >= MaxRetries || errors.Is(pipeErr, domain.ErrUnreadableInput) {
				dlq := dlqMessage{
					Doc:     docMsg,
					Error:   pipeErr.Error(),
					Retries: retries,
				}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: DLQ publish failed", "error", err)
				}
			} else {
				retryMsg := nats.NewMsg(DocsSubject)
				retryMsg.Data = msg.Data
				retryMsg.Header = nats.Header{}
				retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
				if err := nc.PublishMsg(retryMsg); err != nil {
					log.Error("ingest: retry publish failed", "error", err)
				}
			}
		} else {
			doc, _ := result.Unwrap()
			log.Info("ingest: resolved",
				"doc_id", doc.DocID,
				"record_id", doc.RecordID,
				"confidence", doc.Record.Confidence,
				"needs_review", doc.NeedsReview,
			)
			if err := natsutil.Publish(ctx, nc, ResolvedSubject, doc); err != nil {
				log.Error("ingest: resolved publish failed", "error", err)
			}
			if doc.NeedsReview {
				if err := natsutil.Publish(ctx, nc, ReviewSubject, doc); err != nil {
					log.Error("ingest: review publish failed", "error", err)
				}
			}
		}

		// Ack if JetStream.
		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}
