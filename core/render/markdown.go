package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// outputLabels are the bold labels placed above output blocks.
var outputLabels = map[core.OutputKind]string{
	core.KindStream:   "**Output:**",
	core.KindStderr:   "**Output (stderr):**",
	core.KindResult:   "**Result:**",
	core.KindHTML:     "**HTML Output:**",
	core.KindMarkdown: "**Markdown Output:**",
	core.KindLatex:    "**LaTeX:**",
	core.KindJSON:     "**JSON Result:**",
	core.KindImage:    "**Image Output:**",
	core.KindWidget:   "**Widget:**",
	core.KindError:    "**Error:**",
}

// fencedKinds are output kinds shown as code rather than as Markdown.
var fencedKinds = map[core.OutputKind]string{
	core.KindStream: "",
	core.KindStderr: "",
	core.KindResult: "",
	core.KindJSON:   "json",
	core.KindError:  "",
}

// MarkdownRenderer writes a chunk as structured Markdown: a metadata
// header, then each block with code fenced and outputs labelled.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render writes the chunk as Markdown.
func (r *MarkdownRenderer) Render(c core.Chunk) ([]byte, error) {
	var sections []string

	if c.Header != nil && !c.Header.IsEmpty() {
		sections = append(sections, markdownHeader(c.Header))
	} else if title := bareTitle(c); title != "" {
		sections = append(sections, "# "+title)
	}
	if c.Total > 1 {
		sections = append(sections, fmt.Sprintf("*Part %d of %d*", c.Index, c.Total))
	}
	for _, b := range c.Blocks {
		sections = append(sections, markdownBlock(b))
	}

	return []byte(strings.Join(sections, "\n\n") + "\n"), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

func markdownHeader(m *core.Metadata) string {
	var b strings.Builder
	b.WriteString("## Notebook Metadata\n\n")
	for _, f := range headerFields(m) {
		fmt.Fprintf(&b, "- **%s:** %s\n", f.key, f.value)
	}
	for _, w := range m.Warnings {
		fmt.Fprintf(&b, "  - %s\n", w)
	}
	b.WriteString("\n---")
	return b.String()
}

func markdownBlock(b core.Block) string {
	switch b.Role {
	case core.RoleCode:
		code := fenced(b.Text, b.Language)
		if n := executionLabel(b.ExecutionCount); n != "" {
			return "In [" + n + "]:\n" + code
		}
		return code

	case core.RoleOutput:
		label, ok := outputLabels[b.Kind]
		if !ok {
			label = "**Output:**"
		}
		if lang, ok := fencedKinds[b.Kind]; ok {
			return label + "\n" + fenced(b.Text, lang)
		}
		return label + "\n\n" + b.Text

	default:
		return b.Text
	}
}

// fenced wraps text in a code fence longer than any backtick run inside it.
func fenced(text, lang string) string {
	fence := strings.Repeat("`", max(3, longestRun(text, '`')+1))
	return fence + lang + "\n" + text + "\n" + fence
}

func longestRun(s string, ch byte) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == ch {
			cur++
			best = max(best, cur)
		} else {
			cur = 0
		}
	}
	return best
}
