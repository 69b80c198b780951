package retrieval

import "github.com/hackrx-cloud/docqa/internal/domain/chunk"

// Match is a single retrieval hit: a chunk with its lexical relevance score.
type Match struct {
	chunk chunk.Chunk
	score float64
}

// NewMatch creates a retrieval match.
func NewMatch(c chunk.Chunk, score float64) Match {
	return Match{chunk: c, score: score}
}

// Chunk returns the matched chunk.
func (m Match) Chunk() chunk.Chunk { return m.chunk }

// Score returns the relevance score (>= 0, may exceed 1 with the phrase bonus).
func (m Match) Score() float64 { return m.score }

// Text returns the matched chunk text.
func (m Match) Text() string { return m.chunk.Text() }
