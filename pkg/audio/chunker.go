package audio

// Chunker splits an incoming PCM byte stream into fixed 100ms chunks
// with 20ms of overlap between consecutive chunks. The overlap keeps
// word boundaries intact across chunk edges.
//
// Chunker is not safe for concurrent use; each meeting's ingestion
// goroutine owns its own.
type Chunker struct {
	chunkBytes   int
	overlapBytes int
	pending      []byte
}

// NewChunker creates a Chunker with the package's fixed chunk and
// overlap sizes.
func NewChunker() *Chunker {
	return &Chunker{
		chunkBytes:   BytesIn(ChunkDuration),
		overlapBytes: BytesIn(ChunkOverlap),
	}
}

// Push appends raw PCM bytes and returns all complete chunks now
// available. Each returned chunk is chunkBytes long and starts
// overlapBytes before the end of the previous chunk.
func (c *Chunker) Push(pcm []byte) [][]byte {
	c.pending = append(c.pending, pcm...)
	var chunks [][]byte
	step := c.chunkBytes - c.overlapBytes
	for len(c.pending) >= c.chunkBytes {
		chunk := make([]byte, c.chunkBytes)
		copy(chunk, c.pending[:c.chunkBytes])
		chunks = append(chunks, chunk)
		c.pending = c.pending[step:]
	}
	return chunks
}

// Flush returns any remaining partial chunk (zero-padded to full size)
// and resets the chunker. Returns nil when less than the overlap worth
// of audio remains.
func (c *Chunker) Flush() []byte {
	defer func() { c.pending = nil }()
	if len(c.pending) <= c.overlapBytes {
		return nil
	}
	chunk := make([]byte, c.chunkBytes)
	copy(chunk, c.pending)
	return chunk
}
