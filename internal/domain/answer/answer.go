package answer

import "github.com/hackrx-cloud/docqa/internal/domain/chunk"

// Answer is the structured outcome of answering one question. Failures
// are represented as values, never as errors, so a batch of questions
// always yields one result per question.
type Answer struct {
	success     bool
	text        string
	contextUsed []chunk.Chunk
	confidence  float64
	errMessage  string
}

// NewSuccess creates a successful answer with the context chunks that
// produced it and a confidence in [0, 1].
func NewSuccess(text string, contextUsed []chunk.Chunk, confidence float64) Answer {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Answer{
		success:     true,
		text:        text,
		contextUsed: contextUsed,
		confidence:  confidence,
	}
}

// NewFailure creates a failed answer. contextUsed may be non-empty when
// retrieval succeeded but completion did not.
func NewFailure(message string, contextUsed []chunk.Chunk) Answer {
	return Answer{
		text:        message,
		contextUsed: contextUsed,
		errMessage:  message,
	}
}

// Success reports whether an answer was produced.
func (a Answer) Success() bool { return a.success }

// Text returns the answer text, or the failure explanation.
func (a Answer) Text() string { return a.text }

// ContextUsed returns the chunks passed to the completion service.
func (a Answer) ContextUsed() []chunk.Chunk { return a.contextUsed }

// Confidence returns the answer confidence in [0, 1]. Zero on failure.
func (a Answer) Confidence() float64 { return a.confidence }

// ErrorMessage returns the failure explanation, empty on success.
func (a Answer) ErrorMessage() string { return a.errMessage }
