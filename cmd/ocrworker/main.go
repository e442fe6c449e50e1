//go:build cgo

// Command ocrworker consumes scan jobs from NATS, runs each page through
// Tesseract, publishes per-page progress, and hands the assembled document
// text to the resolution pipeline.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/LossLensAI/losslens-engine/engine/ingest"
	"github.com/LossLensAI/losslens-engine/engine/ocr"
	"github.com/LossLensAI/losslens-engine/engine/ocr/tesseract"
	"github.com/LossLensAI/losslens-engine/pkg/metrics"
	"github.com/LossLensAI/losslens-engine/pkg/natsutil"
)

var met = metrics.New()

var (
	mScansTotal   = met.Counter("losslens_ocr_scans_total", "Scan jobs processed")
	mScanErrors   = met.Counter("losslens_ocr_scan_errors_total", "Scan jobs with at least one failed page")
	mPagesTotal   = met.Counter("losslens_ocr_pages_total", "Pages recognized")
	mPageFailures = met.Counter("losslens_ocr_page_failures_total", "Pages that failed recognition")
	mScanSeconds  = met.Histogram("losslens_ocr_scan_seconds", "Per-scan OCR time", nil)
	mActiveScans  = met.Gauge("losslens_ocr_active_scans", "Scans currently being processed")
)

func main() {
	var (
		natsURL     = flag.String("nats", nats.DefaultURL, "NATS server URL")
		queue       = flag.String("queue", "ocrworkers", "NATS queue group")
		timeout     = flag.Duration("timeout", 5*time.Minute, "per-scan OCR deadline")
		metricsPort = flag.Int("metrics-port", 9092, "Prometheus metrics port")
	)
	flag.Parse()

	met.CollectRuntime("losslens_ocr", 15*time.Second)
	met.ServeAsync(*metricsPort)

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	nc, err := nats.Connect(*natsURL, nats.Name("losslens-ocrworker"))
	if err != nil {
		log.Error("nats connect failed", "error", err)
		os.Exit(1)
	}
	defer nc.Drain()
	log.Info("connected to NATS", "url", *natsURL)

	engine := tesseract.New()

	sub, err := natsutil.QueueSubscribe(nc, ingest.ScansSubject, *queue, func(msgCtx context.Context, job ocr.ScanJob) {
		if job.DocID == "" || len(job.Pages) == 0 {
			log.Warn("ocr: dropping malformed scan job", "doc_id", job.DocID, "pages", len(job.Pages))
			return
		}

		mActiveScans.Inc()
		defer mActiveScans.Dec()
		start := time.Now()

		scanCtx, cancel := context.WithTimeout(msgCtx, *timeout)
		defer cancel()

		progress := func(ev ocr.PageEvent) {
			if err := natsutil.Publish(scanCtx, nc, ingest.ProgressSubject, ev); err != nil {
				log.Warn("ocr: progress publish failed", "error", err, "doc_id", ev.DocID)
			}
			switch ev.State {
			case ocr.PageStateSucceeded:
				mPagesTotal.Inc()
			case ocr.PageStateFailed:
				mPageFailures.Inc()
			}
		}

		results, err := ocr.RecognizePages(scanCtx, engine, job.DocID, job.Inputs(), progress)
		mScanSeconds.Since(start)
		mScansTotal.Inc()
		if err != nil {
			mScanErrors.Inc()
			log.Error("ocr: scan had failures",
				"error", err,
				"doc_id", job.DocID,
				"pages_ok", len(results),
				"pages", len(job.Pages),
			)
		}
		if len(results) == 0 {
			log.Error("ocr: no readable pages, dropping scan", "doc_id", job.DocID)
			return
		}

		doc := ingest.DocumentMessage{
			DocID:      job.DocID,
			Source:     job.Source,
			Pages:      len(job.Pages),
			Text:       ocr.AssembleText(results),
			ReceivedAt: time.Now().UTC(),
		}
		if err := natsutil.Publish(scanCtx, nc, ingest.DocsSubject, doc); err != nil {
			log.Error("ocr: document publish failed", "error", err, "doc_id", job.DocID)
			return
		}
		log.Info("ocr: scan complete",
			"doc_id", job.DocID,
			"pages", len(job.Pages),
			"pages_ok", len(results),
			"duration", time.Since(start),
		)
	})
	if err != nil {
		log.Error("subscribe failed", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	log.Info("ocr worker running", "subject", ingest.ScansSubject, "queue", *queue)

	<-ctx.Done()
	log.Info("shutting down")
}
