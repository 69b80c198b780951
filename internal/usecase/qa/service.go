package qa

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hackrx-cloud/docqa/internal/domain"
	"github.com/hackrx-cloud/docqa/internal/domain/answer"
	"github.com/hackrx-cloud/docqa/internal/domain/chunk"
)

// Defaults for question answering.
const (
	DefaultTopK            = 3
	DefaultMaxAnswerTokens = 150
)

// User-facing failure messages.
const (
	msgNoDocument  = "No document has been processed yet. Please upload a document first."
	msgNoContext   = "I could not find relevant information in the document to answer your question."
	msgAIDisabled  = "AI answering is disabled: no completion credentials are configured."
	msgAIExhausted = "Failed to generate answer using AI."
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Letters and digits in any script stay; \w alone would be
	// ASCII-only and strip non-English text.
	unsafeRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,;:!?\-()]`)
)

// Service orchestrates the question-answering pipeline: one-time
// document ingestion (extract, clean, chunk) and per-question retrieval
// plus completion. It holds exactly one live document; re-ingestion
// replaces it wholesale. The document state is guarded so reads
// (answering, summaries) may run concurrently with ingestion; the
// transport layer still serializes whole ingest-and-answer cycles.
type Service struct {
	extractor Extractor
	chunker   Chunker
	retriever Retriever
	completer Completer // nil when AI answering is disabled
	logger    *zap.Logger

	topK            int
	maxAnswerTokens int

	mu             sync.RWMutex
	documentText   string
	documentChunks []chunk.Chunk
}

// New creates the Q&A orchestrator. completer may be nil, which
// disables AI-backed answering without failing construction.
func New(extractor Extractor, chunker Chunker, retriever Retriever, completer Completer, logger *zap.Logger) *Service {
	return &Service{
		extractor:       extractor,
		chunker:         chunker,
		retriever:       retriever,
		completer:       completer,
		logger:          logger,
		topK:            DefaultTopK,
		maxAnswerTokens: DefaultMaxAnswerTokens,
	}
}

// WithTopK overrides the number of chunks retrieved per question.
func (s *Service) WithTopK(topK int) *Service {
	if topK > 0 {
		s.topK = topK
	}
	return s
}

// WithMaxAnswerTokens overrides the completion output bound.
func (s *Service) WithMaxAnswerTokens(n int) *Service {
	if n > 0 {
		s.maxAnswerTokens = n
	}
	return s
}

// IngestStats summarizes a successful document ingestion.
type IngestStats struct {
	Chunks     int
	Characters int
}

// ProcessDocument extracts, cleans, and chunks a raw document, replacing
// any previously ingested one. On failure the previous document state is
// left untouched and the caller may retry with different input.
func (s *Service) ProcessDocument(ctx context.Context, raw []byte) (IngestStats, error) {
	rawText, err := s.extractor.ExtractText(ctx, raw)
	if err != nil {
		return IngestStats{}, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	cleaned := cleanText(rawText)
	chunks := s.chunker.Chunk(cleaned)

	s.mu.Lock()
	s.documentText = cleaned
	s.documentChunks = chunks
	s.mu.Unlock()

	s.logger.Info("document ingested",
		zap.Int("chunks", len(chunks)),
		zap.Int("characters", len(cleaned)),
	)

	return IngestStats{Chunks: len(chunks), Characters: len(cleaned)}, nil
}

// AnswerQuestion answers one question against the ingested document.
// All outcomes are structured results; it never returns an error.
func (s *Service) AnswerQuestion(ctx context.Context, question string) answer.Answer {
	s.mu.RLock()
	chunks := s.documentChunks
	s.mu.RUnlock()

	if len(chunks) == 0 {
		return answer.NewFailure(msgNoDocument, nil)
	}

	matches := s.retriever.Search(question, chunks, s.topK)
	if len(matches) == 0 {
		return answer.NewFailure(msgNoContext, nil)
	}

	contextChunks := make([]chunk.Chunk, len(matches))
	contextTexts := make([]string, len(matches))
	for i := range matches {
		contextChunks[i] = matches[i].Chunk()
		contextTexts[i] = matches[i].Text()
	}

	if s.completer == nil {
		return answer.NewFailure(msgAIDisabled, contextChunks)
	}

	text, err := s.completer.GenerateAnswer(ctx, question, strings.Join(contextTexts, "\n\n"), s.maxAnswerTokens)
	if err != nil {
		s.logger.Warn("completion failed",
			zap.String("question", question),
			zap.Error(err))
		return answer.NewFailure(msgAIExhausted, contextChunks)
	}

	return answer.NewSuccess(text, contextChunks, math.Min(1, matches[0].Score()))
}

// ProcessDocumentAndAnswer runs the full pipeline: ingest once, then
// answer each question independently in order. An ingestion failure
// yields the same error string once per question. An empty question
// list yields an empty (non-nil) answer list.
func (s *Service) ProcessDocumentAndAnswer(ctx context.Context, raw []byte, questions []string) []string {
	answers := make([]string, 0, len(questions))

	if _, err := s.ProcessDocument(ctx, raw); err != nil {
		s.logger.Warn("document processing failed", zap.Error(err))
		msg := "Error processing document: " + err.Error()
		for range questions {
			answers = append(answers, msg)
		}
		return answers
	}

	for _, q := range questions {
		res := s.AnswerQuestion(ctx, q)
		if res.Success() {
			answers = append(answers, res.Text())
		} else {
			answers = append(answers, "Error: "+res.ErrorMessage())
		}
	}

	return answers
}

// DocumentSummary reports statistics about the ingested document.
type DocumentSummary struct {
	Processed      bool
	Characters     int
	Chunks         int
	AvgChunkLength float64
	Preview        string
}

// Summary returns statistics for the currently ingested document.
func (s *Service) Summary() DocumentSummary {
	s.mu.RLock()
	text := s.documentText
	chunks := s.documentChunks
	s.mu.RUnlock()

	if text == "" {
		return DocumentSummary{}
	}

	avg := 0.0
	if len(chunks) > 0 {
		total := 0
		for i := range chunks {
			total += chunks[i].Length()
		}
		avg = float64(total) / float64(len(chunks))
	}

	preview := text
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}

	return DocumentSummary{
		Processed:      true,
		Characters:     len(text),
		Chunks:         len(chunks),
		AvgChunkLength: avg,
		Preview:        preview,
	}
}

// AIEnabled reports whether a completion client is configured.
func (s *Service) AIEnabled() bool { return s.completer != nil }

// cleanText collapses whitespace and strips characters outside a
// conservative safe set.
func cleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = unsafeRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
