package domain

import "strings"

// Document is the OCR output for one valuation document: an ordered sequence
// of lines. Line order matters downstream (multi-line amount lookahead), so
// the lines are fixed at construction and never modified.
type Document struct {
	lines []string
}

// NewDocument splits raw OCR text into a Document. CRLF and lone CR line
// endings are normalized; trailing whitespace per line is dropped.
func NewDocument(text string) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	raw := strings.Split(text, "\n")
	lines := make([]string, len(raw))
	for i, ln := range raw {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	return Document{lines: lines}
}

// NewDocumentFromLines builds a Document from pre-split lines. The slice is
// copied so later mutation by the caller cannot reach the Document.
func NewDocumentFromLines(lines []string) Document {
	cp := make([]string, len(lines))
	copy(cp, lines)
	return Document{lines: cp}
}

// Lines returns the document's lines in order. Callers must treat the slice
// as read-only.
func (d Document) Lines() []string { return d.lines }

// Len returns the number of lines.
func (d Document) Len() int { return len(d.lines) }

// Text joins the lines back into a single string.
func (d Document) Text() string { return strings.Join(d.lines, "\n") }

// runeCountNonSpace counts the non-whitespace characters in the document.
func (d Document) runeCountNonSpace() int {
	n := 0
	for _, ln := range d.lines {
		for _, r := range ln {
			if r != ' ' && r != '\t' {
				n++
			}
		}
	}
	return n
}
