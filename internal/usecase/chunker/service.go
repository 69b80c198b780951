package chunker

import (
	"fmt"
	"strings"

	"github.com/hackrx-cloud/docqa/internal/domain/chunk"
)

// Default window parameters, in characters.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

// Service splits cleaned document text into overlapping fixed-size windows.
type Service struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. chunkSize must be strictly greater than
// overlap, and overlap must be non-negative.
func New(chunkSize, overlap int) (*Service, error) {
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if chunkSize <= overlap {
		return nil, fmt.Errorf("chunk size must exceed overlap, got size=%d overlap=%d", chunkSize, overlap)
	}
	return &Service{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk scans text left to right and emits overlapping windows of at
// most chunkSize characters, snapped back to the last whitespace inside
// the window when the window does not reach the end of the text.
// Windows that trim to nothing are dropped without consuming an id.
func (s *Service) Chunk(text string) []chunk.Chunk {
	var chunks []chunk.Chunk
	start, id := 0, 0

	for start < len(text) {
		end := start + s.chunkSize
		if end < len(text) {
			// Snap to a word boundary strictly inside the window.
			if ws := strings.LastIndexAny(text[start:end], " \t\n\r"); ws > 0 {
				end = start + ws
			}
		}

		sliceEnd := end
		if sliceEnd > len(text) {
			sliceEnd = len(text)
		}

		trimmed := strings.TrimSpace(text[start:sliceEnd])
		if trimmed != "" {
			chunks = append(chunks, chunk.New(id, trimmed, start, sliceEnd))
			id++
		}

		next := end - s.overlap
		if next <= start {
			// Snapping shrank the window below the overlap; a further
			// iteration would not advance.
			break
		}
		start = next
	}

	return chunks
}

// ChunkSize returns the configured window size.
func (s *Service) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured window overlap.
func (s *Service) Overlap() int { return s.overlap }
