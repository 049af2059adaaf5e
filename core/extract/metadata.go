package extract

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/gaurav-prasanna/nbdistill/core"
	"github.com/gaurav-prasanna/nbdistill/core/notebook"
)

func buildMetadata(nb *notebook.Notebook, stats core.Stats) core.Metadata {
	m := nb.Metadata
	return core.Metadata{
		Title:             resolveTitle(nb),
		Kernel:            m.KernelName,
		KernelDisplayName: m.KernelDisplayName,
		Language:          m.Language,
		LanguageVersion:   m.LanguageVersion,
		Authors:           m.Authors,
		Created:           m.Created,
		LastModified:      m.LastModified,
		Tags:              m.Tags,
		Stats:             &stats,
	}
}

// resolveTitle prefers the notebook's title metadata, then the first
// level-1 heading, then a title made from the source file name.
func resolveTitle(nb *notebook.Notebook) string {
	if t := strings.TrimSpace(nb.Metadata.Title); t != "" {
		return t
	}
	for _, cell := range nb.Cells {
		if md, ok := cell.(*notebook.MarkdownCell); ok {
			if t := firstHeading(md.Source); t != "" {
				return t
			}
		}
	}
	return titleFromSource(nb.Source)
}

func firstHeading(source string) string {
	if !strings.Contains(source, "#") && !strings.Contains(source, "=") {
		return ""
	}
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return strings.TrimSpace(string(h.Text(src)))
		}
	}
	return ""
}

// titleFromSource turns "data_cleaning-v2.ipynb" into "Data Cleaning V2".
func titleFromSource(source string) string {
	if source == "" {
		return ""
	}
	base := filepath.Base(source)
	if strings.Contains(source, "://") {
		base = path.Base(source)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
