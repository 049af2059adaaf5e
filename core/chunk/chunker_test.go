package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/nbdistill/core"
)

func blocksOfSize(sizes ...int) []core.Block {
	blocks := make([]core.Block, len(sizes))
	for i, n := range sizes {
		blocks[i] = core.NewBlock(core.RoleMarkdown, strings.Repeat("x", n), i)
	}
	return blocks
}

func flatten(chunks []core.Chunk) []core.Block {
	var out []core.Block
	for _, c := range chunks {
		out = append(out, c.Blocks...)
	}
	return out
}

func TestNoBudgetIsOneChunk(t *testing.T) {
	blocks := blocksOfSize(100, 200, 300)
	chunks := New(0).Chunk(blocks, core.UnitChars, nil, true)

	require.Len(t, chunks, 1)
	assert.Equal(t, blocks, chunks[0].Blocks)
	assert.Equal(t, 1, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Total)
	assert.Equal(t, 600, chunks[0].Size)
}

func TestGreedyPacking(t *testing.T) {
	blocks := blocksOfSize(7, 10, 1, 4)
	chunks := New(20).Chunk(blocks, core.UnitChars, nil, true)

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0].Blocks, 3)
	assert.Len(t, chunks[1].Blocks, 1)
	assert.Equal(t, 18, chunks[0].Size)
	assert.Equal(t, 4, chunks[1].Size)
}

func TestOversizedBlockAlone(t *testing.T) {
	blocks := blocksOfSize(3, 50, 3)
	chunks := New(10).Chunk(blocks, core.UnitChars, nil, true)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[1].Blocks, 1)
	assert.Equal(t, 50, chunks[1].Size)
}

func TestChunkProperties(t *testing.T) {
	sizes := []int{5, 12, 1, 30, 8, 8, 8, 2, 19, 20, 21, 0, 3}
	blocks := blocksOfSize(sizes...)

	for _, budget := range []int{1, 5, 10, 20, 25, 50, 1000} {
		chunks := New(budget).Chunk(blocks, core.UnitChars, nil, true)

		assert.Equal(t, blocks, flatten(chunks), "budget %d", budget)
		for i, c := range chunks {
			assert.Equal(t, i+1, c.Index)
			assert.Equal(t, len(chunks), c.Total)
			assert.NotEmpty(t, c.Blocks)
			if len(c.Blocks) > 1 {
				assert.LessOrEqual(t, c.Size, budget, "budget %d chunk %d", budget, c.Index)
			}
		}
	}
}

func TestTokenUnit(t *testing.T) {
	blocks := blocksOfSize(100, 100, 100)
	for i := range blocks {
		blocks[i].Tokens = 5
	}
	chunks := New(10).Chunk(blocks, core.UnitTokens, nil, true)

	require.Len(t, chunks, 2)
	assert.Equal(t, core.UnitTokens, chunks[0].Unit)
	assert.Equal(t, 10, chunks[0].Size)
}

func TestHeaderPlacement(t *testing.T) {
	header := &core.Metadata{Title: "T"}
	blocks := blocksOfSize(5, 5, 5)

	repeated := New(5).Chunk(blocks, core.UnitChars, header, true)
	for _, c := range repeated {
		assert.Same(t, header, c.Header)
	}

	first := New(5).Chunk(blocks, core.UnitChars, header, false)
	assert.Same(t, header, first[0].Header)
	assert.Nil(t, first[1].Header)
	assert.Nil(t, first[2].Header)
}

func TestEmptyBlocks(t *testing.T) {
	header := &core.Metadata{Title: "T"}
	chunks := New(10).Chunk(nil, core.UnitChars, header, true)

	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Blocks)
	assert.Equal(t, 1, chunks[0].Total)
	assert.Same(t, header, chunks[0].Header)
}

func TestNegativeBudget(t *testing.T) {
	assert.Equal(t, 0, New(-3).Size)
}
