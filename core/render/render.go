// Package render provides the format serializers. Each renderer turns one
// chunk into a standalone document; rendering the same chunk twice yields
// identical bytes.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// ForFormat returns the renderer for f.
func ForFormat(f core.Format) (core.Renderer, error) {
	switch f {
	case core.FormatMarkdown:
		return NewMarkdownRenderer(), nil
	case core.FormatJSON:
		return NewJSONRenderer(), nil
	case core.FormatText:
		return NewTextRenderer(), nil
	case core.FormatPDF:
		return NewPDFRenderer(), nil
	default:
		return nil, core.NewFormatError(string(f))
	}
}

// field is one line of a rendered metadata header.
type field struct {
	key, value string
}

// bareTitle returns the notebook title to print on a chunk whose header
// has no metadata section. It is "" when there is a populated header or
// when the first block already opens with the title as a heading.
func bareTitle(c core.Chunk) string {
	if c.Title == "" || (c.Header != nil && !c.Header.IsEmpty()) {
		return ""
	}
	if len(c.Blocks) > 0 {
		first, _, _ := strings.Cut(c.Blocks[0].Text, "\n")
		if strings.EqualFold(strings.TrimSpace(strings.TrimLeft(first, "#")), c.Title) {
			return ""
		}
	}
	return c.Title
}

// headerFields lists the populated metadata entries in a fixed order.
func headerFields(m *core.Metadata) []field {
	var fields []field
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, field{key, value})
		}
	}

	add("Title", m.Title)
	kernel := m.KernelDisplayName
	if m.Kernel != "" && kernel != "" && kernel != m.Kernel {
		kernel += " (" + m.Kernel + ")"
	} else if kernel == "" {
		kernel = m.Kernel
	}
	add("Kernel", kernel)
	add("Language", strings.TrimSpace(m.Language+" "+m.LanguageVersion))
	add("Authors", strings.Join(m.Authors, ", "))
	add("Created", m.Created)
	add("Last Modified", m.LastModified)
	add("Tags", strings.Join(m.Tags, ", "))

	if s := m.Stats; s != nil {
		add("Cells", fmt.Sprintf("%d total (%d markdown, %d code, %d raw), %d with output",
			s.TotalCells, s.MarkdownCells, s.CodeCells, s.RawCells, s.CodeCellsWithOutput))
		if s.SkippedCells > 0 {
			add("Skipped Cells", strconv.Itoa(s.SkippedCells))
		}
		if s.MinExecutionCount != nil && s.MaxExecutionCount != nil {
			add("Execution Range", fmt.Sprintf("%d-%d", *s.MinExecutionCount, *s.MaxExecutionCount))
		}
	}

	if m.TokenEncoding != "" {
		enc := m.TokenEncoding
		if m.ApproximateTokens {
			enc += " (approximate)"
		}
		add("Token Encoding", enc)
	}
	if len(m.Warnings) > 0 {
		add("Warnings", strconv.Itoa(len(m.Warnings)))
	}
	return fields
}

// executionLabel formats an execution count, or "" when there is none.
func executionLabel(count *int) string {
	if count == nil {
		return ""
	}
	return strconv.Itoa(*count)
}
