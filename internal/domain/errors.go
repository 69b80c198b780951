package domain

import "errors"

var (
	// ErrCompletionExhausted signals that all completion attempts failed.
	ErrCompletionExhausted = errors.New("completion attempts exhausted")
	// ErrDocumentFetch signals a source document download failure.
	ErrDocumentFetch = errors.New("document fetch failed")
	// ErrExtraction signals a text extraction failure.
	ErrExtraction = errors.New("text extraction failed")
)
