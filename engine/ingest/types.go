package ingest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LossLensAI/losslens-engine/engine/domain"
)

// DocumentMessage is the wire form of an OCR'd valuation report awaiting
// resolution. OCR workers publish it after assembling page texts.
type DocumentMessage struct {
	// DocID identifies the source document (claim attachment, upload, scan
	// batch entry). It is the stable key for deduplication and record IDs.
	DocID string `json:"doc_id"`
	// Source names the producer, e.g. "ocrworker" or "upload-api".
	Source string `json:"source,omitempty"`
	// Pages is the page count of the source document, when known.
	Pages int `json:"pages,omitempty"`
	// Text is the assembled OCR text for the whole document.
	Text string `json:"text"`
	// ReceivedAt is when the producer finished extracting the text.
	ReceivedAt time.Time `json:"received_at,omitempty"`
}

// ResolvedDoc is the pipeline's output: a document resolved into a record,
// annotated with where it went.
type ResolvedDoc struct {
	DocID       string        `json:"doc_id"`
	RecordID    string        `json:"record_id"`
	Record      domain.Record `json:"record"`
	NeedsReview bool          `json:"needs_review"`
}

// RecordID derives a stable UUID for a document's resolved record. The same
// document always maps to the same record, so re-deliveries overwrite rather
// than duplicate.
func RecordID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("losslens:record:%s", docID))).String()
}
