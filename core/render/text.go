package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// TextRenderer writes a chunk as plain text with role prefixes and no
// fencing.
type TextRenderer struct{}

// NewTextRenderer creates a TextRenderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render writes the chunk as plain text.
func (r *TextRenderer) Render(c core.Chunk) ([]byte, error) {
	var sections []string

	if c.Header != nil && !c.Header.IsEmpty() {
		var b strings.Builder
		b.WriteString("NOTEBOOK METADATA")
		for _, f := range headerFields(c.Header) {
			fmt.Fprintf(&b, "\n%s: %s", f.key, f.value)
		}
		for _, w := range c.Header.Warnings {
			fmt.Fprintf(&b, "\n  %s", w)
		}
		sections = append(sections, b.String())
	} else if title := bareTitle(c); title != "" {
		sections = append(sections, strings.ToUpper(title))
	}
	if c.Total > 1 {
		sections = append(sections, fmt.Sprintf("Part %d of %d", c.Index, c.Total))
	}
	for _, b := range c.Blocks {
		sections = append(sections, textPrefix(b)+"\n"+b.Text)
	}

	return []byte(strings.Join(sections, "\n\n") + "\n"), nil
}

// Extension returns the file extension for text output.
func (r *TextRenderer) Extension() string {
	return ".txt"
}

func textPrefix(b core.Block) string {
	switch b.Role {
	case core.RoleCode:
		if n := executionLabel(b.ExecutionCount); n != "" {
			return "Code [" + n + "]:"
		}
		return "Code:"
	case core.RoleOutput:
		switch b.Kind {
		case core.KindError:
			return "Error:"
		case core.KindStderr:
			return "Output (stderr):"
		default:
			return "Output:"
		}
	default:
		return "Markdown:"
	}
}
