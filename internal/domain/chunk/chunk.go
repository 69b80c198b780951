package chunk

// Chunk is a bounded substring of the ingested document with positional
// metadata (immutable value object). Offsets refer to the cleaned
// document text; ids are dense and sequential over emitted chunks.
type Chunk struct {
	id       int
	text     string
	startPos int
	endPos   int
}

// New creates a Chunk. text is expected to be trimmed by the chunker.
func New(id int, text string, startPos, endPos int) Chunk {
	return Chunk{id: id, text: text, startPos: startPos, endPos: endPos}
}

// ID returns the sequential zero-based chunk identifier.
func (c Chunk) ID() int { return c.id }

// Text returns the trimmed chunk text.
func (c Chunk) Text() string { return c.text }

// StartPos returns the window start offset in the cleaned document.
func (c Chunk) StartPos() int { return c.startPos }

// EndPos returns the window end offset in the cleaned document.
func (c Chunk) EndPos() int { return c.endPos }

// Length returns the character count of the trimmed text.
func (c Chunk) Length() int { return len(c.text) }
