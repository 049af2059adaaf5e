package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// pdfEpoch is stamped as the creation date so output is reproducible.
var pdfEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// PDFRenderer lays out the Markdown rendering of a chunk as a PDF.
// Headings, code fences, output labels and lists are styled; images are
// already placeholders by the time a chunk is rendered.
type PDFRenderer struct {
	md *MarkdownRenderer
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{md: NewMarkdownRenderer()}
}

// Render converts the chunk into PDF bytes.
func (r *PDFRenderer) Render(c core.Chunk) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := c.Title
	if c.Header != nil && c.Header.Title != "" {
		title = c.Header.Title
	}
	if title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.MultiCell(0, 8, tr(title), "", "L", false)
		pdf.Ln(4)
	}

	// The title is drawn above, so the header section starts after it.
	body := c
	body.Title = ""
	if c.Header != nil {
		h := *c.Header
		h.Title = ""
		body.Header = &h
	}
	markdown, err := r.md.Render(body)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(markdown), "\n")
	fence := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if fence == "" && strings.HasPrefix(trimmed, "```") {
			fence = trimmed[:len(trimmed)-len(strings.TrimLeft(trimmed, "`"))]
			pdf.Ln(2)
			continue
		}
		if fence != "" {
			if trimmed == fence {
				fence = ""
				pdf.Ln(2)
				continue
			}
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, tr(line), "", "L", true)
			continue
		}

		switch {
		case trimmed == "":
			pdf.Ln(3)

		case trimmed == "---":
			pdf.Ln(2)
			y := pdf.GetY()
			pdf.SetDrawColor(180, 180, 180)
			pdf.Line(10, y, 200, y)
			pdf.Ln(2)

		case strings.HasPrefix(line, "#"):
			level := len(line) - len(strings.TrimLeft(line, "#"))
			renderHeading(pdf, tr(strings.TrimSpace(line[level:])), level)

		case labelRegex.MatchString(trimmed):
			pdf.SetFont("Helvetica", "B", 10)
			pdf.SetTextColor(90, 90, 90)
			pdf.MultiCell(0, 5, tr(strings.Trim(trimmed, "*")), "", "L", false)
			pdf.SetTextColor(0, 0, 0)

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Helvetica", "", 10)
			indent := strings.Repeat(" ", len(line)-len(strings.TrimLeft(line, " ")))
			pdf.MultiCell(0, 5, tr(indent+"- "+cleanInlineMarkdown(trimmed[2:])), "", "L", false)

		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(line)), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// labelRegex matches whole-line bold labels such as "**Output:**" and
// execution prompts such as "In [3]:".
var labelRegex = regexp.MustCompile(`^(\*\*[^*]+:\*\*|In \[\d+\]:|\*Part \d+ of \d+\*)$`)

// renderHeading sets the font size based on heading level and writes text.
func renderHeading(pdf *gofpdf.Fpdf, text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, cleanInlineMarkdown(text), "", "L", false)
	pdf.Ln(2)
}

var (
	italicRegex = regexp.MustCompile(`(?:^|\s)\*([^*]+)\*(?:\s|$)`)
	codeRegex   = regexp.MustCompile("`([^`]+)`")
	linkRegex   = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
)

// cleanInlineMarkdown strips inline Markdown formatting for PDF rendering.
// Links keep their target so it survives in print.
func cleanInlineMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = italicRegex.ReplaceAllString(text, " $1 ")
	text = codeRegex.ReplaceAllString(text, "$1")
	text = linkRegex.ReplaceAllString(text, "$1 ($2)")
	return strings.TrimSpace(text)
}
