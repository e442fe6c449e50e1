package ocr

import (
	"context"
	"fmt"
	"strings"
)

// ProgressFunc receives one event per page state change. A nil func is a no-op.
type ProgressFunc func(PageEvent)

// RecognizePages runs the engine over a document's pages in order, reporting
// per-page progress. Cancellation is checked between pages; a page already
// handed to the engine finishes (or fails) on its own.
//
// A page failure does not stop the remaining pages. The failed page
// contributes no text and the error is reported in its PageEvent; the first
// failure is also returned alongside the successful pages' results.
func RecognizePages(ctx context.Context, eng Engine, docID string, pages []Input, progress ProgressFunc) ([]Result, error) {
	if progress == nil {
		progress = func(PageEvent) {}
	}
	total := len(pages)
	results := make([]Result, 0, total)
	var firstErr error

	for i, in := range pages {
		if err := ctx.Err(); err != nil {
			for _, rest := range pages[i:] {
				progress(PageEvent{DocID: docID, Page: rest.Page, Pages: total, State: PageStateCanceled})
			}
			if firstErr == nil {
				firstErr = err
			}
			return results, firstErr
		}

		progress(PageEvent{DocID: docID, Page: in.Page, Pages: total, State: PageStateRunning})
		res, err := eng.Recognize(ctx, in)
		if err != nil {
			progress(PageEvent{DocID: docID, Page: in.Page, Pages: total, State: PageStateFailed, Error: err.Error()})
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", in.Page, err)
			}
			continue
		}
		progress(PageEvent{DocID: docID, Page: in.Page, Pages: total, State: PageStateSucceeded, Text: res.PlainText})
		results = append(results, res)
	}
	return results, firstErr
}

// AssembleText joins page texts in order with blank lines between pages,
// skipping pages that produced nothing.
func AssembleText(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		text := strings.TrimSpace(r.PlainText)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
