// Package ocr defines the provider boundary for optical recognition of
// scanned valuation report pages. Resolution itself never touches an OCR
// engine; workers use this package to turn page images into the document
// text the resolver consumes. Cancellation and timeouts live entirely at
// this boundary.
package ocr

import (
	"context"
	"fmt"
)

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
	ImageFormatTIFF ImageFormat = "image/tiff"
)

// Input encapsulates a single page image submitted for OCR.
type Input struct {
	// ID is an optional caller-provided identifier echoed back in the Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type.
	Format ImageFormat
	// Page is the zero-based page number within the source document.
	Page int
	// DPI carries the effective dots-per-inch; zero means unknown.
	DPI int
	// Languages lists trained-data hints (e.g. "eng").
	Languages []string
	// Metadata passes provider-specific knobs (e.g. Tesseract variables)
	// without hard-coding them into the API surface.
	Metadata map[string]string
}

// Result captures OCR output for a single page image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// Page mirrors Input.Page.
	Page int
	// PlainText contains the linearized text extracted from the image.
	PlainText string
	// Confidence is the mean word confidence in [0,1]; zero means the
	// provider reported none.
	Confidence float64
}

// Engine is the simplest OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// BatchEngine handles multiple images in a single call, for providers that
// amortize setup costs.
type BatchEngine interface {
	Engine
	RecognizeBatch(ctx context.Context, inputs []Input) ([]Result, error)
}

// PageState models the lifecycle of a page inside a scan job.
type PageState string

const (
	PageStatePending   PageState = "pending"
	PageStateRunning   PageState = "running"
	PageStateSucceeded PageState = "succeeded"
	PageStateFailed    PageState = "failed"
	PageStateCanceled  PageState = "canceled"
)

// ScanPage is one page image inside a ScanJob.
type ScanPage struct {
	Image  []byte      `json:"image"`
	Format ImageFormat `json:"format"`
	DPI    int         `json:"dpi,omitempty"`
}

// ScanJob is the wire form of a multi-page document submitted for OCR.
type ScanJob struct {
	DocID     string     `json:"doc_id"`
	Source    string     `json:"source,omitempty"`
	Pages     []ScanPage `json:"pages"`
	Languages []string   `json:"languages,omitempty"`
}

// Inputs expands the job into per-page OCR inputs. Page IDs are derived from
// the document ID so OCR results can be traced back.
func (j ScanJob) Inputs() []Input {
	inputs := make([]Input, len(j.Pages))
	for i, p := range j.Pages {
		opts := []InputOption{WithLanguages(j.Languages...)}
		if p.DPI > 0 {
			opts = append(opts, WithDPI(p.DPI))
		}
		inputs[i] = NewInput(fmt.Sprintf("%s/%d", j.DocID, i), p.Image, p.Format, i, opts...)
	}
	return inputs
}

// PageEvent reports incremental progress for a long-running scan job. The
// worker publishes one event per page transition; consumers may surface it
// but it has no bearing on resolution semantics.
type PageEvent struct {
	DocID string    `json:"doc_id"`
	Page  int       `json:"page"`
	Pages int       `json:"pages"`
	State PageState `json:"state"`
	Text  string    `json:"text,omitempty"`
	Error string    `json:"error,omitempty"`
}
