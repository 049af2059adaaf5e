// Package chunk packs extracted blocks into size-bounded chunks.
// Boundaries only fall between blocks: a block larger than the budget
// gets a chunk of its own instead of being split.
package chunk

import "github.com/gaurav-prasanna/nbdistill/core"

// Chunker packs blocks greedily under a size budget.
type Chunker struct {
	Size int // budget per chunk; 0 disables chunking
}

// New creates a Chunker with the given budget. A budget of zero or less
// puts every block into a single chunk.
func New(size int) *Chunker {
	if size < 0 {
		size = 0
	}
	return &Chunker{Size: size}
}

// Chunk partitions blocks in order, measuring each with Block.Size(unit).
// header is attached to every chunk when repeatHeader is set, otherwise
// to the first chunk only. An empty block list yields one empty chunk so
// the header is still emitted.
func (c *Chunker) Chunk(blocks []core.Block, unit core.Unit, header *core.Metadata, repeatHeader bool) []core.Chunk {
	var chunks []core.Chunk
	cur := core.Chunk{Unit: unit}

	flush := func() {
		chunks = append(chunks, cur)
		cur = core.Chunk{Unit: unit}
	}

	for _, b := range blocks {
		size := b.Size(unit)
		if c.Size > 0 && len(cur.Blocks) > 0 && cur.Size+size > c.Size {
			flush()
		}
		cur.Blocks = append(cur.Blocks, b)
		cur.Size += size
	}
	if len(cur.Blocks) > 0 || len(chunks) == 0 {
		flush()
	}

	for i := range chunks {
		chunks[i].Index = i + 1
		chunks[i].Total = len(chunks)
		if i == 0 || repeatHeader {
			chunks[i].Header = header
		}
	}
	return chunks
}
