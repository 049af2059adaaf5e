package normalize

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// flattenMarkdown renders Markdown as plain text: headings upper-cased,
// emphasis dropped, links as "text (url)" and list markers kept.
func flattenMarkdown(s string) string {
	src := []byte(s)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if t := flattenBlock(n, src, ""); t != "" {
			blocks = append(blocks, t)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func flattenBlock(n ast.Node, src []byte, indent string) string {
	switch node := n.(type) {
	case *ast.Heading:
		return strings.ToUpper(flattenInline(node, src))

	case *ast.Paragraph, *ast.TextBlock:
		return flattenInline(node, src)

	case *ast.List:
		var items []string
		num := node.Start
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "- "
			if node.IsOrdered() {
				marker = strconv.Itoa(num) + ". "
				num++
			}
			items = append(items, indent+marker+flattenListItem(item, src, indent+"  "))
		}
		return strings.Join(items, "\n")

	case *ast.Blockquote:
		var parts []string
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if t := flattenBlock(c, src, indent); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n\n")

	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		return strings.TrimRight(blockLines(node, src), "\n")

	case *ast.ThematicBreak:
		return ""

	default:
		return strings.TrimSpace(string(node.Text(src)))
	}
}

// flattenListItem joins an item's blocks; nested lists go on following
// lines with a deeper indent.
func flattenListItem(item ast.Node, src []byte, indent string) string {
	var b strings.Builder
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, nested := c.(*ast.List); nested {
			b.WriteString("\n")
			b.WriteString(flattenBlock(c, src, indent))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n" + indent)
		}
		b.WriteString(flattenBlock(c, src, indent))
	}
	return b.String()
}

func blockLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

func flattenInline(n ast.Node, src []byte) string {
	var b strings.Builder
	writeInline(&b, n, src)
	return strings.TrimSpace(b.String())
}

func writeInline(b *strings.Builder, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.Link:
			label := flattenInline(node, src)
			dest := string(node.Destination)
			b.WriteString(label)
			if dest != "" && dest != label {
				b.WriteString(" (" + dest + ")")
			}
		case *ast.AutoLink:
			b.Write(node.URL(src))
		case *ast.Image:
			b.WriteString("[image: " + flattenInline(node, src) + "]")
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				b.Write(seg.Value(src))
			}
		default:
			// Emphasis, code spans and anything else keep only their text.
			writeInline(b, node, src)
		}
	}
}
