package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/nbdistill/core"
)

var allTargets = []core.Format{core.FormatMarkdown, core.FormatText, core.FormatJSON}

func TestLatexPreservedInEveryFormat(t *testing.T) {
	input := "Energy $E = mc^2$ and $$\\int_0^1 x\\,dx$$"
	for _, target := range allTargets {
		t.Run(string(target), func(t *testing.T) {
			assert.Equal(t, input, New(target).Normalize(input))
		})
	}
}

func TestCurrencyIsNotLatex(t *testing.T) {
	input := "It costs $5 and $10 today"
	for _, target := range allTargets {
		t.Run(string(target), func(t *testing.T) {
			assert.Equal(t, input, New(target).Normalize(input))
		})
	}
}

func TestEscapedDollarNeverOpensSpan(t *testing.T) {
	input := `price \$5 and $x$`
	p := &protector{}
	out := p.protectLatex(input)

	require.Len(t, p.items, 1)
	assert.Equal(t, "$x$", p.items[0].raw)
	assert.Contains(t, out, `\$5`)
}

func TestUnclosedLatexIsPlainText(t *testing.T) {
	input := "a $$b and $c"
	p := &protector{}
	assert.Equal(t, input, p.protectLatex(input))
	assert.Empty(t, p.items)
}

const simpleTable = "<table><tr><th>a</th><th>b</th></tr><tr><td>1</td><td>2</td></tr></table>"

func TestTableToMarkdown(t *testing.T) {
	out := New(core.FormatMarkdown).Normalize(simpleTable)
	assert.Equal(t, "| a | b |\n| --- | --- |\n| 1 | 2 |", out)
}

func TestTableInsideProse(t *testing.T) {
	out := New(core.FormatMarkdown).Normalize("Results:\n" + simpleTable + "\nDone")
	assert.Equal(t, "Results:\n| a | b |\n| --- | --- |\n| 1 | 2 |\nDone", out)
}

func TestTableToText(t *testing.T) {
	input := "<table><tr><th>name</th><th>value</th></tr><tr><td>alpha</td><td>1</td></tr></table>"
	out := New(core.FormatText).Normalize(input)
	assert.Equal(t, "name   value\n-----  -----\nalpha  1", out)
}

func TestTableToJSON(t *testing.T) {
	out, tables := New(core.FormatJSON).NormalizeTables(simpleTable)

	assert.Equal(t, "[table 1]", out)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"a", "b"}, tables[0].Header)
	assert.Equal(t, [][]string{{"1", "2"}}, tables[0].Rows)
}

func TestTableShortRowsArePadded(t *testing.T) {
	input := "<table><tr><td>a</td><td>b</td><td>c</td></tr><tr><td>1</td></tr></table>"
	_, tables := New(core.FormatJSON).NormalizeTables(input)

	require.Len(t, tables, 1)
	assert.Equal(t, [][]string{{"1", "", ""}}, tables[0].Rows)
}

func TestPipesInCellsAreEscaped(t *testing.T) {
	input := "<table><tr><th>expr</th></tr><tr><td>a|b</td></tr></table>"
	out := New(core.FormatMarkdown).Normalize(input)
	assert.Contains(t, out, `| a\|b |`)
}

func TestUnclosedTableLeftRaw(t *testing.T) {
	input := "<table><tr><td>x"
	assert.Equal(t, input, New(core.FormatMarkdown).Normalize(input))
}

func TestHTMLToMarkdown(t *testing.T) {
	out := New(core.FormatMarkdown).Normalize("<p>Hello <b>world</b></p>")
	assert.Contains(t, out, "Hello **world**")
	assert.NotContains(t, out, "<p>")
}

func TestHTMLNoiseRemoved(t *testing.T) {
	tests := []struct {
		name   string
		target core.Format
		input  string
		want   string
	}{
		{"script only", core.FormatMarkdown, "<script>alert(1)</script>", ""},
		{"script in div text", core.FormatText, "<div><script>alert(1)</script>Visible</div>", "Visible"},
		{"style in div json", core.FormatJSON, "<div><style>p{}</style>Shown</div>", "Shown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.target).Normalize(tt.input))
		})
	}
}

func TestHTMLFlattenedForText(t *testing.T) {
	out := New(core.FormatText).Normalize("<ul><li>one</li><li>two</li></ul>")
	assert.Equal(t, "- one\n- two", out)
}

func TestLineBreakTag(t *testing.T) {
	assert.Equal(t, "line1\nline2", New(core.FormatMarkdown).Normalize("line1<br>line2"))
}

func TestCommentsDropped(t *testing.T) {
	out := New(core.FormatMarkdown).Normalize("a <!-- hidden --> b")
	assert.NotContains(t, out, "hidden")
}

func TestCodeFenceProtected(t *testing.T) {
	input := "```python\nx = '<b>'\n```"

	assert.Equal(t, input, New(core.FormatMarkdown).Normalize(input))
	assert.Equal(t, "x = '<b>'", New(core.FormatText).Normalize(input))
}

func TestInlineCodeProtected(t *testing.T) {
	input := "Use `<br>` here"

	assert.Equal(t, input, New(core.FormatMarkdown).Normalize(input))
	assert.Equal(t, "Use <br> here", New(core.FormatText).Normalize(input))
}

func TestMarkdownFlattenedForText(t *testing.T) {
	input := "# Title\n\nSome *emphasis* and [link](http://x.io).\n\n- one\n- two\n\n1. first\n2. second"
	want := "TITLE\n\nSome emphasis and link (http://x.io).\n\n- one\n- two\n\n1. first\n2. second"
	assert.Equal(t, want, New(core.FormatText).Normalize(input))
}

func TestMarkdownUntouchedForMarkdown(t *testing.T) {
	input := "# Title\n\nSome *emphasis*."
	assert.Equal(t, input, New(core.FormatMarkdown).Normalize(input))
}

func TestPDFNormalizesAsMarkdown(t *testing.T) {
	assert.Equal(t, core.FormatMarkdown, New(core.FormatPDF).Target())
}

func TestNormalizeIsTotal(t *testing.T) {
	inputs := []string{"", "<<>>", "</div>", "<div", "$", "$$", "```", "\\", "<table></table>", "<a href='x'>"}
	for _, target := range allTargets {
		for _, input := range inputs {
			assert.NotPanics(t, func() { New(target).Normalize(input) }, "%s %q", target, input)
		}
	}
}

func TestUnterminatedMarkupKeepsText(t *testing.T) {
	inputs := []string{
		"<div",
		"a <b",
		"x<y",
		"if x<y then z",
		"<!-- open",
		"Note <!-- draft: keep this text visible",
		"The loop runs while i<n and then stops.",
	}
	for _, target := range allTargets {
		for _, input := range inputs {
			assert.Equal(t, input, New(target).Normalize(input), "%s %q", target, input)
		}
	}
}

func TestTextAfterUnterminatedTagSurvives(t *testing.T) {
	input := "<p>First</p> then i<n and the rest"
	out := New(core.FormatMarkdown).Normalize(input)
	assert.Contains(t, out, "First")
	assert.Contains(t, out, "then i<n and the rest")
}

func TestTokensCoverInput(t *testing.T) {
	for _, input := range []string{"a <b", "<p>x</p><!-- y", "<table><tr><td>1</td></tr></table> i<n"} {
		toks := tokenize(input)
		require.NotEmpty(t, toks)
		assert.Equal(t, 0, toks[0].start)
		assert.Equal(t, len(input), toks[len(toks)-1].end, input)
		for i := 1; i < len(toks); i++ {
			assert.Equal(t, toks[i-1].end, toks[i].start, input)
		}
	}
}
