// Package pdfextract pulls plain text out of PDF guideline documents for
// ingestion into the knowledge base.
package pdfextract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads r to the end and returns the PDF's plain text. A PDF with
// no extractable text (for example a pure scan) yields an empty string with a
// nil error; the caller decides whether that is worth ingesting.
func ExtractText(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if len(raw) == 0 {
		return "", nil
	}

	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	text, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	content, err := io.ReadAll(text)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(content), nil
}
