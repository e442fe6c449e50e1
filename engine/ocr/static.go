package ocr

import (
	"context"
	"fmt"
)

// StaticEngine returns canned text keyed by input ID. It backs tests and
// fixture-driven development without a Tesseract install.
type StaticEngine struct {
	// Texts maps Input.ID to the text to return.
	Texts map[string]string
	// Fallback is returned when the ID has no entry and Strict is false.
	Fallback string
	// Strict makes unknown IDs an error instead of the fallback.
	Strict bool
	// Confidence is attached to every result.
	Confidence float64
}

func (e *StaticEngine) Name() string { return "static" }

// Recognize returns the canned text for the input.
func (e *StaticEngine) Recognize(_ context.Context, in Input) (Result, error) {
	text, ok := e.Texts[in.ID]
	if !ok {
		if e.Strict {
			return Result{}, fmt.Errorf("ocr: no static text for input %q", in.ID)
		}
		text = e.Fallback
	}
	return Result{
		InputID:    in.ID,
		Page:       in.Page,
		PlainText:  text,
		Confidence: e.Confidence,
	}, nil
}
