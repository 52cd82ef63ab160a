// Package datasheet extracts plain text from datasheet PDFs so a
// tool-calling client can read a part's documentation instead of just
// receiving a URL.
package datasheet

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxRunes caps extracted text; datasheets run to hundreds of
// pages and tool results should not.
const DefaultMaxRunes = 40000

// Extract pulls the plain text out of a PDF document, truncated to
// maxRunes (<= 0 means DefaultMaxRunes).
func Extract(data []byte, maxRunes int) (string, error) {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parsing PDF: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, textReader); err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("document contains no extractable text")
	}

	runes := []rune(text)
	if len(runes) > maxRunes {
		text = string(runes[:maxRunes]) + "\n[truncated]"
	}
	return text, nil
}
