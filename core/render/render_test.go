package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/nbdistill/core"
)

func intPtr(n int) *int { return &n }

func sampleChunk() core.Chunk {
	code := core.NewBlock(core.RoleCode, "print(1+1)", 1)
	code.ExecutionCount = intPtr(1)
	code.Language = "python"
	out := core.NewBlock(core.RoleOutput, "2", 1)
	out.Kind = core.KindStream

	return core.Chunk{
		Index: 1,
		Total: 1,
		Blocks: []core.Block{
			core.NewBlock(core.RoleMarkdown, "# Title", 0),
			code,
			out,
			core.NewBlock(core.RoleMarkdown, "Done", 2),
		},
		Header: &core.Metadata{
			Title:    "Title",
			Kernel:   "python3",
			Language: "python",
			Stats:    &core.Stats{TotalCells: 3, MarkdownCells: 2, CodeCells: 1, CodeCellsWithOutput: 1},
		},
	}
}

func TestForFormat(t *testing.T) {
	for _, f := range core.SupportedFormats() {
		r, err := ForFormat(f)
		require.NoError(t, err, f)
		assert.NotNil(t, r)
	}

	_, err := ForFormat("yaml")
	require.Error(t, err)
	assert.True(t, core.Is(err, core.ErrFormat))
}

func TestMarkdownRender(t *testing.T) {
	out, err := NewMarkdownRenderer().Render(sampleChunk())
	require.NoError(t, err)
	doc := string(out)

	want := []string{
		"## Notebook Metadata",
		"- **Title:** Title",
		"---",
		"# Title",
		"In [1]:\n```python\nprint(1+1)\n```",
		"**Output:**\n```\n2\n```",
		"Done",
	}
	last := -1
	for _, w := range want {
		i := strings.Index(doc, w)
		require.GreaterOrEqual(t, i, 0, "missing %q in:\n%s", w, doc)
		assert.Greater(t, i, last, "%q out of order", w)
		last = i
	}
	assert.NotContains(t, doc, "Part 1")
}

func TestMarkdownPartMarkerAndNoHeader(t *testing.T) {
	c := sampleChunk()
	c.Index, c.Total, c.Header = 2, 3, nil

	out, err := NewMarkdownRenderer().Render(c)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "*Part 2 of 3*"))
	assert.NotContains(t, string(out), "Notebook Metadata")
}

func TestMarkdownFenceGrowsPastBackticks(t *testing.T) {
	c := core.Chunk{Index: 1, Total: 1, Blocks: []core.Block{
		core.NewBlock(core.RoleCode, "s = \"```\"", 0),
	}}
	out, err := NewMarkdownRenderer().Render(c)
	require.NoError(t, err)
	assert.Equal(t, "````\ns = \"```\"\n````\n", string(out))
}

func TestMarkdownOutputLabels(t *testing.T) {
	errBlock := core.NewBlock(core.RoleOutput, "ValueError: bad", 0)
	errBlock.Kind = core.KindError
	html := core.NewBlock(core.RoleOutput, "| a |\n| --- |", 0)
	html.Kind = core.KindHTML

	out, err := NewMarkdownRenderer().Render(core.Chunk{Index: 1, Total: 1, Blocks: []core.Block{errBlock, html}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "**Error:**\n```\nValueError: bad\n```")
	assert.Contains(t, string(out), "**HTML Output:**\n\n| a |")
}

func TestJSONRender(t *testing.T) {
	out, err := NewJSONRenderer().Render(sampleChunk())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "json", doc["format"])
	assert.NotContains(t, doc, "chunk")

	meta := doc["metadata"].(map[string]any)
	assert.Equal(t, "Title", meta["title"])

	content := doc["content"].([]any)
	require.Len(t, content, 4)
	code := content[1].(map[string]any)
	assert.Equal(t, "code", code["role"])
	assert.Equal(t, "print(1+1)", code["text"])
	assert.Equal(t, float64(1), code["cell_index"])
	assert.Equal(t, float64(1), code["execution_count"])
	assert.Equal(t, "stream", content[2].(map[string]any)["kind"])
}

func TestJSONChunkAndEmptyMetadata(t *testing.T) {
	c := core.Chunk{Index: 2, Total: 2}
	out, err := NewJSONRenderer().Render(c)
	require.NoError(t, err)

	var doc struct {
		Chunk    *jsonChunk     `json:"chunk"`
		Metadata map[string]any `json:"metadata"`
		Content  []any          `json:"content"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	require.NotNil(t, doc.Chunk)
	assert.Equal(t, jsonChunk{Index: 2, Total: 2}, *doc.Chunk)
	assert.NotNil(t, doc.Metadata)
	assert.Empty(t, doc.Metadata)
	assert.NotNil(t, doc.Content)
	assert.Contains(t, string(out), `"content": []`)
}

func TestJSONKeepsMarkupUnescaped(t *testing.T) {
	c := core.Chunk{Index: 1, Total: 1, Blocks: []core.Block{core.NewBlock(core.RoleCode, "a < b && c", 0)}}
	out, err := NewJSONRenderer().Render(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), "a < b && c")
}

func TestTextRender(t *testing.T) {
	out, err := NewTextRenderer().Render(sampleChunk())
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, "NOTEBOOK METADATA\nTitle: Title\nKernel: python3\nLanguage: python\n"))
	assert.Contains(t, doc, "Markdown:\n# Title")
	assert.Contains(t, doc, "Code [1]:\nprint(1+1)")
	assert.Contains(t, doc, "Output:\n2")
	assert.Contains(t, doc, "Markdown:\nDone")
	assert.NotContains(t, doc, "```")
}

func TestPDFRender(t *testing.T) {
	c := sampleChunk()
	c.Header.Authors = []string{"Zoë"}

	out, err := NewPDFRenderer().Render(c)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderingIsDeterministic(t *testing.T) {
	for _, f := range core.SupportedFormats() {
		r, err := ForFormat(f)
		require.NoError(t, err)

		first, err := r.Render(sampleChunk())
		require.NoError(t, err)
		second, err := r.Render(sampleChunk())
		require.NoError(t, err)
		assert.Equal(t, first, second, f)
	}
}

func TestHeaderFields(t *testing.T) {
	m := &core.Metadata{
		Kernel:            "python3",
		KernelDisplayName: "Python 3",
		Language:          "python",
		LanguageVersion:   "3.11.4",
		TokenEncoding:     "heuristic",
		ApproximateTokens: true,
		Stats:             &core.Stats{MinExecutionCount: intPtr(1), MaxExecutionCount: intPtr(9)},
	}
	got := map[string]string{}
	for _, f := range headerFields(m) {
		got[f.key] = f.value
	}
	assert.Equal(t, "Python 3 (python3)", got["Kernel"])
	assert.Equal(t, "python 3.11.4", got["Language"])
	assert.Equal(t, "1-9", got["Execution Range"])
	assert.Equal(t, "heuristic (approximate)", got["Token Encoding"])
	assert.NotContains(t, got, "Title")
}

// untitledChunk carries a title but no metadata section, as when metadata
// is excluded from the output.
func untitledChunk() core.Chunk {
	return core.Chunk{
		Index:  1,
		Total:  1,
		Title:  "Sales Report",
		Header: &core.Metadata{},
		Blocks: []core.Block{core.NewBlock(core.RoleMarkdown, "Quarterly numbers.", 0)},
	}
}

func TestTitleShownWithoutMetadata(t *testing.T) {
	md, err := NewMarkdownRenderer().Render(untitledChunk())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Sales Report\n\nQuarterly numbers."))
	assert.NotContains(t, string(md), "Notebook Metadata")

	text, err := NewTextRenderer().Render(untitledChunk())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "SALES REPORT\n\nMarkdown:\nQuarterly numbers."))

	out, err := NewJSONRenderer().Render(untitledChunk())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "Sales Report", doc["title"])

	pdf, err := NewPDFRenderer().Render(untitledChunk())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestTitleNotRepeatedBeforeHeading(t *testing.T) {
	c := untitledChunk()
	c.Blocks[0] = core.NewBlock(core.RoleMarkdown, "# Sales Report\nQuarterly numbers.", 0)

	md, err := NewMarkdownRenderer().Render(c)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(md), "Sales Report"))

	c.Blocks[0] = core.NewBlock(core.RoleMarkdown, "SALES REPORT\n\nQuarterly numbers.", 0)
	text, err := NewTextRenderer().Render(c)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(text), "SALES REPORT"))
}

func TestTitleOmittedWhenHeaderPopulated(t *testing.T) {
	c := sampleChunk()
	c.Title = "Title"

	out, err := NewJSONRenderer().Render(c)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.NotContains(t, doc, "title")

	md, err := NewMarkdownRenderer().Render(c)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(md), "# Title"))
}
