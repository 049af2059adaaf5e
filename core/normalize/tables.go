package normalize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// span is a byte range [start, end) of the input.
type span struct {
	start, end int
}

// findTableSpans returns the outermost closed <table> elements in s.
// An unclosed table produces no span, so its markup passes through raw.
func findTableSpans(s string) []span {
	if !strings.Contains(strings.ToLower(s), "<table") {
		return nil
	}

	var spans []span
	depth, start := 0, 0
	for _, t := range tokenize(s) {
		if t.name != "table" {
			continue
		}
		switch t.kind {
		case html.StartTagToken:
			if depth == 0 {
				start = t.start
			}
			depth++
		case html.EndTagToken:
			if depth > 0 {
				depth--
				if depth == 0 {
					spans = append(spans, span{start: start, end: t.end})
				}
			}
		}
	}
	return spans
}

// convertTables replaces every closed table with a protected rendering.
func (n *Normalizer) convertTables(s string, p *protector) (string, []core.Table) {
	spans := findTableSpans(s)
	if len(spans) == 0 {
		return s, nil
	}

	var (
		b      strings.Builder
		tables []core.Table
		last   int
	)
	for _, sp := range spans {
		b.WriteString(s[last:sp.start])
		last = sp.end

		raw := s[sp.start:sp.end]
		table, ok := parseTable(raw)
		if !ok {
			b.WriteString(raw)
			continue
		}
		tables = append(tables, table)

		var rendered string
		switch n.target {
		case core.FormatJSON:
			rendered = fmt.Sprintf("[table %d]", len(tables))
		case core.FormatText:
			rendered = renderTextTable(table)
		default:
			rendered = renderMarkdownTable(table)
		}
		b.WriteString(p.add(kindTable, rendered, rendered))
	}
	b.WriteString(s[last:])
	return b.String(), tables
}

// parseTable reads rows and cells in order. The first row is the header;
// short rows are padded to the widest row. A table with no rows is not
// converted.
func parseTable(raw string) (core.Table, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return core.Table{}, false
	}
	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return core.Table{}, false
	}

	var rows [][]string
	width := 0
	tbl.Find("tr").
		FilterFunction(func(_ int, row *goquery.Selection) bool {
			return row.Closest("table").IsSelection(tbl)
		}).
		Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.Join(strings.Fields(cell.Text()), " "))
			})
			if len(cells) == 0 {
				return
			}
			if len(cells) > width {
				width = len(cells)
			}
			rows = append(rows, cells)
		})
	if len(rows) == 0 {
		return core.Table{}, false
	}

	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}
	return core.Table{Header: rows[0], Rows: rows[1:]}, true
}

func renderMarkdownTable(t core.Table) string {
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(c, "|", `\|`))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(t.Header)
	sep := make([]string, len(t.Header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// renderTextTable lays the table out in space-padded columns with a dashed
// rule under the header.
func renderTextTable(t core.Table) string {
	widths := make([]int, len(t.Header))
	measure := func(cells []string) {
		for i, c := range cells {
			if w := utf8.RuneCountInString(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Header)
	for _, row := range t.Rows {
		measure(row)
	}

	var lines []string
	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = c + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	lines = append(lines, line(t.Header))
	rule := make([]string, len(widths))
	for i, w := range widths {
		if w == 0 {
			w = 1
		}
		rule[i] = strings.Repeat("-", w)
	}
	lines = append(lines, strings.Join(rule, "  "))
	for _, row := range t.Rows {
		lines = append(lines, line(row))
	}
	return strings.Join(lines, "\n")
}
