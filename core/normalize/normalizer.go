// Package normalize implements the Normalizer interface.
// It rewrites markup embedded in cell sources and rich outputs into the
// target format's native syntax:
//  1. Code spans and LaTeX are protected and restored verbatim
//  2. <table> elements become pipe tables, aligned columns, or structured rows
//  3. Other HTML becomes Markdown, or plain text for non-rich targets
//  4. For the text target, Markdown syntax itself is flattened
//
// Normalization is total: anything it cannot parse passes through unchanged.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// Normalizer rewrites markup for one target format.
type Normalizer struct {
	target core.Format
}

// New creates a Normalizer for the given format. PDF output is laid out
// from Markdown, so it normalizes like Markdown.
func New(target core.Format) *Normalizer {
	if target == core.FormatPDF || target == "" {
		target = core.FormatMarkdown
	}
	return &Normalizer{target: target}
}

// Target returns the format the normalizer writes.
func (n *Normalizer) Target() core.Format {
	return n.target
}

// Normalize rewrites text for the target format, discarding structured tables.
func (n *Normalizer) Normalize(text string) string {
	out, _ := n.NormalizeTables(text)
	return out
}

// NormalizeTables rewrites text and returns the tables found in it, in
// document order. For the JSON target each table is replaced in the text
// by a "[table N]" reference into the returned slice.
func (n *Normalizer) NormalizeTables(text string) (string, []core.Table) {
	if text == "" {
		return "", nil
	}

	p := &protector{}
	s := p.protectCode(text)
	s = p.protectLatex(s)

	s, tables := n.convertTables(s, p)
	s = n.convertHTML(s)
	if n.target == core.FormatText {
		s = flattenMarkdown(s)
	}
	return p.restore(s, n.target), tables
}

// Sentinels use private-use runes so no converter treats them as markup.
const (
	sentinelOpen  = "\uE000"
	sentinelClose = "\uE001"

	kindCode  = 'C'
	kindFence = 'F'
	kindLatex = 'L'
	kindTable = 'T'
)

var sentinelRegex = regexp.MustCompile(`\x{E000}([CFLT])(\d+)\x{E001}`)

type protected struct {
	raw   string // original text, restored verbatim
	inner string // content without delimiters, used by the text target
}

// protector swaps regions that must not be rewritten for sentinels.
type protector struct {
	items []protected
}

func (p *protector) add(kind byte, raw, inner string) string {
	p.items = append(p.items, protected{raw: raw, inner: inner})
	return sentinelOpen + string(kind) + strconv.Itoa(len(p.items)-1) + sentinelClose
}

// restore puts protected regions back. Tables are kept on their own lines;
// the text target drops code fences and backticks.
func (p *protector) restore(s string, target core.Format) string {
	if len(p.items) == 0 {
		return s
	}
	// A restored table can itself contain code or LaTeX sentinels.
	for i := 0; i < 3 && strings.Contains(s, sentinelOpen); i++ {
		s = p.restoreOnce(s, target)
	}
	return s
}

func (p *protector) restoreOnce(s string, target core.Format) string {
	matches := sentinelRegex.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		kind := s[m[2]]
		idx, err := strconv.Atoi(s[m[4]:m[5]])
		if err != nil || idx >= len(p.items) {
			b.WriteString(s[m[0]:m[1]])
			last = m[1]
			continue
		}
		item := p.items[idx]

		switch kind {
		case kindTable:
			writeOwnLines(&b, item.raw, s[m[1]:])
		case kindFence, kindCode:
			if target == core.FormatText {
				b.WriteString(item.inner)
			} else {
				b.WriteString(item.raw)
			}
		default:
			b.WriteString(item.raw)
		}
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// writeOwnLines writes block so that it starts and ends on a line of its own.
func writeOwnLines(b *strings.Builder, block, rest string) {
	if cur := b.String(); cur != "" && !strings.HasSuffix(cur, "\n") {
		b.WriteString("\n\n")
	}
	b.WriteString(block)
	if rest != "" && !strings.HasPrefix(rest, "\n") {
		b.WriteString("\n\n")
	}
}

// protectCode replaces fenced code blocks and inline code spans.
func (p *protector) protectCode(s string) string {
	s = p.protectFences(s)
	return inlineCodeRegex.ReplaceAllStringFunc(s, func(span string) string {
		ticks := len(span) - len(strings.TrimLeft(span, "`"))
		return p.add(kindCode, span, span[ticks:len(span)-ticks])
	})
}

// inlineCodeRegex matches single- and double-backtick code spans on one line.
var inlineCodeRegex = regexp.MustCompile("``[^`\n]+``|`[^`\n]+`")

// protectFences replaces ``` and ~~~ fenced blocks. An unclosed fence runs
// to the end of the text, as in CommonMark.
func (p *protector) protectFences(s string) string {
	if !strings.Contains(s, "```") && !strings.Contains(s, "~~~") {
		return s
	}

	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for i := 0; i < len(lines); i++ {
		marker, ok := fenceMarker(lines[i])
		if !ok {
			b.WriteString(lines[i])
			continue
		}

		end := len(lines) - 1
		for j := i + 1; j < len(lines); j++ {
			if closesFence(lines[j], marker) {
				end = j
				break
			}
		}

		raw := strings.Join(lines[i:end+1], "")
		trailing := ""
		if strings.HasSuffix(raw, "\n") {
			raw = strings.TrimSuffix(raw, "\n")
			trailing = "\n"
		}
		inner := ""
		if end > i {
			body := lines[i+1 : end]
			if !closesFence(lines[end], marker) {
				body = lines[i+1 : end+1]
			}
			inner = strings.TrimRight(strings.Join(body, ""), "\n")
		}
		b.WriteString(p.add(kindFence, raw, inner))
		b.WriteString(trailing)
		i = end
	}
	return b.String()
}

func fenceMarker(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return "", false
	}
	for _, ch := range []string{"`", "~"} {
		n := len(trimmed) - len(strings.TrimLeft(trimmed, ch))
		if n >= 3 {
			return strings.Repeat(ch, n), true
		}
	}
	return "", false
}

func closesFence(line, marker string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, marker) {
		return false
	}
	return strings.Trim(trimmed, marker[:1]) == ""
}

// protectLatex replaces $$...$$ and $...$ spans. A backslash-escaped dollar
// never opens or closes a span. Inline spans follow the usual heuristics:
// no space just inside the delimiters and no digit right after the closer,
// so "$5 and $10" stays plain text.
func (p *protector) protectLatex(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			b.WriteString(s[i : i+2])
			i += 2
			continue
		}
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}

		if strings.HasPrefix(s[i:], "$$") {
			if end := findDisplayClose(s, i+2); end >= 0 {
				span := s[i : end+2]
				b.WriteString(p.add(kindLatex, span, span))
				i = end + 2
				continue
			}
			b.WriteString("$$")
			i += 2
			continue
		}

		if end := findInlineClose(s, i+1); end >= 0 {
			span := s[i : end+1]
			b.WriteString(p.add(kindLatex, span, span))
			i = end + 1
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func findDisplayClose(s string, from int) int {
	for j := from; j < len(s)-1; j++ {
		if s[j] == '\\' {
			j++
			continue
		}
		if s[j] == '$' && s[j+1] == '$' {
			if j == from {
				return -1
			}
			return j
		}
	}
	return -1
}

func findInlineClose(s string, from int) int {
	if from >= len(s) || isSpace(s[from]) || s[from] == '$' {
		return -1
	}
	for j := from; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '\n':
			return -1
		case '$':
			if isSpace(s[j-1]) {
				return -1
			}
			if j+1 < len(s) && s[j+1] >= '0' && s[j+1] <= '9' {
				return -1
			}
			return j
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
