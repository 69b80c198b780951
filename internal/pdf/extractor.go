// Package pdf extracts plain text from PDF documents using MuPDF.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// ErrEmptyDocument indicates the PDF contained no extractable text.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// Extractor pulls text out of PDF bytes, page by page. A page that
// fails to render is logged and skipped rather than failing the whole
// document.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a PDF text extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// ExtractText renders every page of the PDF to text and concatenates
// the results with newlines. MuPDF needs a file path, so the content is
// staged in a temporary file that is removed before returning.
func (e *Extractor) ExtractText(ctx context.Context, content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	doc, err := fitz.New(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := doc.Text(i)
		if err != nil {
			e.logger.Warn("skipping unreadable page",
				zap.Int("page", i+1),
				zap.Error(err))
			continue
		}
		pages = append(pages, text)
	}

	joined := strings.TrimSpace(strings.Join(pages, "\n"))
	if joined == "" {
		return "", ErrEmptyDocument
	}

	e.logger.Debug("extracted text from pdf",
		zap.Int("pages", doc.NumPage()),
		zap.Int("characters", len(joined)))

	return joined, nil
}
