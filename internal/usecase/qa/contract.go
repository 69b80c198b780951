package qa

import (
	"context"

	"github.com/hackrx-cloud/docqa/internal/domain/chunk"
	"github.com/hackrx-cloud/docqa/internal/domain/retrieval"
)

// Extractor extracts plain text from raw document bytes.
type Extractor interface {
	ExtractText(ctx context.Context, content []byte) (string, error)
}

// Chunker splits cleaned text into overlapping chunks.
type Chunker interface {
	Chunk(text string) []chunk.Chunk
}

// Retriever ranks chunks against a query, best first.
type Retriever interface {
	Search(query string, chunks []chunk.Chunk, topK int) []retrieval.Match
}

// Completer obtains a one-sentence answer from the completion service.
type Completer interface {
	GenerateAnswer(ctx context.Context, question, contextText string, maxTokens int) (string, error)
}
