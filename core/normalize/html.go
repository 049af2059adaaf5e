package normalize

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// noiseSelectors are HTML elements removed before conversion.
// They contribute no readable content to a cell or output.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"svg", "canvas", "iframe",
	"form", "button", "input", "select", "textarea",
}

// voidElements never have a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// blockElements start on a line of their own.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"details": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "summary": true,
	"table": true, "tbody": true, "td": true, "th": true, "thead": true,
	"tr": true, "ul": true,
}

type token struct {
	kind  html.TokenType
	name  string
	start int
	end   int
}

// tokenize splits s into HTML tokens with their byte offsets. The tokens
// always cover all of s: input left over when the tokenizer stops, such as
// an unterminated tag like "i<n and more", becomes a trailing text token.
func tokenize(s string) []token {
	var toks []token
	z := html.NewTokenizer(strings.NewReader(s))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		n := len(z.Raw())
		t := token{kind: tt, start: offset, end: offset + n}
		if tt == html.StartTagToken || tt == html.EndTagToken || tt == html.SelfClosingTagToken {
			name, _ := z.TagName()
			t.name = string(name)
		}
		toks = append(toks, t)
		offset += n
	}
	if offset < len(s) {
		toks = append(toks, token{kind: html.TextToken, start: offset, end: len(s)})
	}
	return toks
}

// closeFragment returns the index of the token that closes the element
// opened at toks[i], or -1 if it is never closed. End tags pop back to the
// matching open element, so implied closes like an unterminated <li> inside
// a closed <ul> are tolerated.
func closeFragment(toks []token, i int) int {
	stack := []string{toks[i].name}
	for j := i + 1; j < len(toks); j++ {
		t := toks[j]
		switch t.kind {
		case html.StartTagToken:
			if !voidElements[t.name] {
				stack = append(stack, t.name)
			}
		case html.EndTagToken:
			for k := len(stack) - 1; k >= 0; k-- {
				if stack[k] == t.name {
					stack = stack[:k]
					break
				}
			}
			if len(stack) == 0 {
				return j
			}
		}
	}
	return -1
}

// convertHTML rewrites every closed top-level HTML fragment in s.
// Comments and doctypes are dropped. Unclosed fragments and unterminated
// comments stay raw.
func (n *Normalizer) convertHTML(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	toks := tokenize(s)

	var b strings.Builder
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.kind {
		case html.TextToken:
			b.WriteString(s[t.start:t.end])
			continue
		case html.CommentToken:
			if raw := s[t.start:t.end]; !strings.HasSuffix(raw, "-->") {
				b.WriteString(raw)
			}
			continue
		case html.DoctypeToken:
			continue
		case html.EndTagToken:
			// Stray closer with no opener.
			b.WriteString(s[t.start:t.end])
			continue
		}

		end := i
		if t.kind == html.StartTagToken && !voidElements[t.name] {
			end = closeFragment(toks, i)
			if end < 0 {
				b.WriteString(s[t.start:t.end])
				continue
			}
		}

		fragment := s[t.start:toks[end].end]
		i = end
		if t.name == "br" {
			b.WriteString("\n")
			continue
		}

		converted := n.convertFragment(fragment)
		if converted == "" {
			continue
		}
		if blockElements[t.name] {
			writeOwnLines(&b, converted, restText(s, toks, end))
		} else {
			b.WriteString(converted)
		}
	}
	return b.String()
}

func restText(s string, toks []token, i int) string {
	if i+1 >= len(toks) {
		return ""
	}
	return s[toks[i+1].start:]
}

// convertFragment strips noise and renders one fragment for the target.
func (n *Normalizer) convertFragment(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
	body := doc.Find("body")

	if n.target == core.FormatMarkdown {
		inner, err := body.Html()
		if err != nil {
			return fragment
		}
		if strings.TrimSpace(inner) == "" {
			return ""
		}
		md, err := htmltomarkdown.ConvertString(inner)
		if err != nil {
			return flattenHTML(body)
		}
		return strings.TrimSpace(md)
	}
	return flattenHTML(body)
}

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\n]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// flattenHTML renders a parsed fragment as plain text. Block elements
// become line breaks and list items get a "- " marker.
func flattenHTML(sel *goquery.Selection) string {
	var b strings.Builder
	newline := func() {
		if cur := b.String(); cur != "" && !strings.HasSuffix(cur, "\n") {
			b.WriteString("\n")
		}
	}

	var walk func(node *html.Node, pre bool)
	walk = func(node *html.Node, pre bool) {
		switch node.Type {
		case html.TextNode:
			text := node.Data
			if !pre {
				text = spaceRun.ReplaceAllString(text, " ")
				if strings.HasSuffix(b.String(), "\n") {
					text = strings.TrimLeft(text, " ")
				}
			}
			b.WriteString(text)
			return
		case html.ElementNode:
		default:
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				walk(c, pre)
			}
			return
		}

		switch node.Data {
		case "br":
			b.WriteString("\n")
			return
		case "hr":
			newline()
			b.WriteString("---\n")
			return
		case "img":
			if alt := attr(node, "alt"); alt != "" {
				b.WriteString("[image: " + alt + "]")
			}
			return
		case "li":
			newline()
			b.WriteString("- ")
		case "td", "th":
			if node.PrevSibling != nil {
				b.WriteString("  ")
			}
		}

		block := blockElements[node.Data] && node.Data != "li" && node.Data != "td" && node.Data != "th"
		if block {
			newline()
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre || node.Data == "pre")
		}
		if node.Data == "a" {
			if href := attr(node, "href"); href != "" && !strings.HasPrefix(href, "#") {
				b.WriteString(" (" + href + ")")
			}
		}
		if block || node.Data == "li" {
			newline()
		}
	}
	for _, node := range sel.Nodes {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c, false)
		}
	}

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	out := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
