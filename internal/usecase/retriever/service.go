package retriever

import (
	"sort"
	"strings"

	"github.com/hackrx-cloud/docqa/internal/domain/chunk"
	"github.com/hackrx-cloud/docqa/internal/domain/retrieval"
)

// PhraseBonus is added to a chunk's score when the whole query appears
// verbatim (case-insensitive) in the chunk text.
const PhraseBonus = 0.5

// Service scores chunks against a query by case-insensitive word-set
// overlap plus a flat substring bonus.
type Service struct{}

// New creates a lexical retriever.
func New() *Service {
	return &Service{}
}

// Search returns the topK highest-scoring chunks, best first. Chunks
// with zero score are excluded; ties keep the original chunk order.
// An empty result is a normal outcome, not an error.
func (s *Service) Search(query string, chunks []chunk.Chunk, topK int) []retrieval.Match {
	if len(chunks) == 0 {
		return nil
	}

	queryLower := strings.ToLower(query)
	queryWords := wordSet(queryLower)

	var matches []retrieval.Match
	for _, c := range chunks {
		textLower := strings.ToLower(c.Text())

		score := 0.0
		if len(queryWords) > 0 {
			common := 0
			for w := range wordSet(textLower) {
				if queryWords[w] {
					common++
				}
			}
			score = float64(common) / float64(len(queryWords))
		}

		if strings.Contains(textLower, queryLower) {
			score += PhraseBonus
		}

		if score > 0 {
			matches = append(matches, retrieval.NewMatch(c, score))
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score() > matches[j].Score()
	})

	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func wordSet(text string) map[string]bool {
	words := strings.Fields(text)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
