package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// jsonDocument keeps content and metadata as siblings.
type jsonDocument struct {
	Format   core.Format   `json:"format"`
	Title    string        `json:"title,omitempty"`
	Chunk    *jsonChunk    `json:"chunk,omitempty"`
	Metadata core.Metadata `json:"metadata"`
	Content  []core.Block  `json:"content"`
}

type jsonChunk struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

// JSONRenderer writes a chunk as a structured JSON document.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render converts the chunk into the JSON document structure. A chunk
// without a header carries an empty metadata object, and a top-level title
// when it has one to show.
func (r *JSONRenderer) Render(c core.Chunk) ([]byte, error) {
	doc := jsonDocument{
		Format:  core.FormatJSON,
		Content: c.Blocks,
	}
	if doc.Content == nil {
		doc.Content = []core.Block{}
	}
	if c.Header != nil {
		doc.Metadata = *c.Header
	}
	if doc.Metadata.Title == "" {
		doc.Title = c.Title
	}
	if c.Total > 1 {
		doc.Chunk = &jsonChunk{Index: c.Index, Total: c.Total}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}
