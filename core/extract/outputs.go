package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/nbdistill/core"
	"github.com/gaurav-prasanna/nbdistill/core/notebook"
)

const (
	mimeHTML     = "text/html"
	mimeMarkdown = "text/markdown"
	mimeLatex    = "text/latex"
	mimeJSON     = "application/json"
	mimePlain    = "text/plain"
	mimeWidget   = "application/vnd.jupyter.widget-view+json"
)

// imageMimes are rendered as placeholders, in preference order.
var imageMimes = []string{"image/png", "image/jpeg", "image/gif", "image/svg+xml"}

// rendered is the output of one MIME renderer.
type rendered struct {
	text   string
	kind   core.OutputKind
	tables []core.Table
}

// mimeRenderer pairs a predicate with a renderer. An empty rendering
// means the next renderer in the list is tried.
type mimeRenderer struct {
	match  func(d *notebook.DisplayData) bool
	render func(e *Extractor, d *notebook.DisplayData) rendered
}

// displayRenderers is ordered richest first.
var displayRenderers = []mimeRenderer{
	{has(mimeHTML), renderHTML},
	{hasImage, renderImage},
	{has(mimeMarkdown), renderMarkdown},
	{has(mimeLatex), renderLatex},
	{has(mimeJSON), renderJSON},
	{has(mimePlain), renderPlain},
	{has(mimeWidget), renderWidget},
}

func has(mime string) func(d *notebook.DisplayData) bool {
	return func(d *notebook.DisplayData) bool { return d.Has(mime) }
}

func hasImage(d *notebook.DisplayData) bool {
	return firstImage(d) != ""
}

func firstImage(d *notebook.DisplayData) string {
	for _, mime := range imageMimes {
		if d.Has(mime) {
			return mime
		}
	}
	return ""
}

func renderHTML(e *Extractor, d *notebook.DisplayData) rendered {
	text, tables := e.norm.NormalizeTables(d.Data[mimeHTML])
	return rendered{text: trimBlock(text), kind: core.KindHTML, tables: tables}
}

func renderImage(_ *Extractor, d *notebook.DisplayData) rendered {
	return rendered{text: "[image: " + firstImage(d) + "]", kind: core.KindImage}
}

func renderMarkdown(e *Extractor, d *notebook.DisplayData) rendered {
	text, tables := e.norm.NormalizeTables(d.Data[mimeMarkdown])
	return rendered{text: trimBlock(text), kind: core.KindMarkdown, tables: tables}
}

func renderLatex(_ *Extractor, d *notebook.DisplayData) rendered {
	return rendered{text: strings.TrimSpace(d.Data[mimeLatex]), kind: core.KindLatex}
}

func renderJSON(_ *Extractor, d *notebook.DisplayData) rendered {
	raw := strings.TrimSpace(d.Data[mimeJSON])
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err == nil {
		raw = buf.String()
	}
	return rendered{text: raw, kind: core.KindJSON}
}

func renderPlain(_ *Extractor, d *notebook.DisplayData) rendered {
	kind := core.KindStream
	if d.IsResult {
		kind = core.KindResult
	}
	return rendered{text: cleanText(d.Data[mimePlain]), kind: kind}
}

func renderWidget(_ *Extractor, _ *notebook.DisplayData) rendered {
	return rendered{text: "[interactive widget]", kind: core.KindWidget}
}

// ansiEscape matches CSI sequences such as the colour codes in tracebacks.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

func cleanText(s string) string {
	return strings.TrimRight(ansiEscape.ReplaceAllString(s, ""), "\n")
}

// renderOutput renders one output of a code cell. It returns false when
// the output is skipped, recording a diagnostic if it was malformed.
func (e *Extractor) renderOutput(r *run, cellIndex, outIndex int, out notebook.Output) (core.Block, bool) {
	var res rendered
	switch o := out.(type) {
	case *notebook.StreamOutput:
		res.text = cleanText(o.Text)
		res.kind = core.KindStream
		if o.Name == "stderr" {
			res.kind = core.KindStderr
		}
		if res.text == "" {
			return core.Block{}, false
		}

	case *notebook.DisplayData:
		for _, mr := range displayRenderers {
			if !mr.match(o) {
				continue
			}
			if res = mr.render(e, o); res.text != "" {
				break
			}
		}
		if res.text == "" {
			r.skip(cellIndex, "output %d: no renderable MIME type in %v", outIndex, mimeTypes(o))
			return core.Block{}, false
		}

	case *notebook.ErrorOutput:
		res.text = renderError(o)
		res.kind = core.KindError

	case *notebook.InvalidOutput:
		r.skip(cellIndex, "output %d: %s", outIndex, o.Reason)
		return core.Block{}, false

	default:
		r.skip(cellIndex, "output %d: unsupported output %T", outIndex, out)
		return core.Block{}, false
	}

	if e.opts.Format != core.FormatJSON {
		res.tables = nil
	}
	text, tables := truncateOutput(res.text, res.tables, e.opts.MaxOutputLength)
	block := core.NewBlock(core.RoleOutput, text, cellIndex).WithTables(tables)
	block.Kind = res.kind
	if d, ok := out.(*notebook.DisplayData); ok && d.IsResult {
		block.ExecutionCount = d.ExecutionCount
	}
	return block, true
}

func renderError(o *notebook.ErrorOutput) string {
	var b strings.Builder
	b.WriteString(o.Name)
	if o.Value != "" {
		b.WriteString(": ")
		b.WriteString(o.Value)
	}
	for _, line := range o.Traceback {
		line = cleanText(line)
		if line == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

// truncate cuts s to limit runes and appends core.TruncationMarker.
// A limit of zero or less disables truncation.
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + core.TruncationMarker
		}
		n++
	}
	return s
}

// truncateOutput applies the output limit to the text and structured
// tables together, counting one line per table row. Rows that do not fit
// are dropped and the text is marked truncated.
func truncateOutput(text string, tables []core.Table, limit int) (string, []core.Table) {
	if limit <= 0 {
		return text, tables
	}
	used := utf8.RuneCountInString(text)
	if used > limit || len(tables) == 0 {
		return truncate(text, limit), nil
	}

	kept := make([]core.Table, 0, len(tables))
	for _, t := range tables {
		lines := t.Lines()
		fit := 0
		for _, line := range lines {
			n := utf8.RuneCountInString(line) + 1
			if used+n > limit {
				break
			}
			used += n
			fit++
		}
		if fit == len(lines) {
			kept = append(kept, t)
			continue
		}
		if fit > 0 {
			kept = append(kept, core.Table{Header: t.Header, Rows: t.Rows[:fit-1]})
		}
		return text + core.TruncationMarker, kept
	}
	return text, kept
}

func mimeTypes(d *notebook.DisplayData) []string {
	types := make([]string, 0, len(d.Data))
	for mime := range d.Data {
		types = append(types, mime)
	}
	sort.Strings(types)
	return types
}
