// Package output handles file naming and writing for distilled notebooks.
// A single document goes to <name><ext>; chunked output goes to
// <name>_chunk<N><ext>. In --all mode, paths mirror the source tree.
package output

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Writer writes rendered documents to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// DefaultPath names the output for a single source.
// Example: notebooks/analysis.ipynb → <dir>/analysis.md,
// https://example.com/nbs/demo.ipynb → <dir>/example_com_nbs_demo.md
func (w *Writer) DefaultPath(source, ext string) string {
	var name string
	if isURL(source) {
		name = filenameFromURL(source)
	} else {
		name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	return filepath.Join(w.OutputDir, name+ext)
}

// MirrorPath names the output for a source found under root, keeping its
// relative directory. URLs mirror their path.
// Example: root=nbs, nbs/ch1/intro.ipynb → <dir>/ch1/intro.md
func (w *Writer) MirrorPath(root, source, ext string) (string, error) {
	var rel string
	if isURL(source) {
		parsed, err := url.Parse(source)
		if err != nil {
			return "", fmt.Errorf("parsing URL: %w", err)
		}
		rel = strings.Trim(parsed.Path, "/")
		if rel == "" {
			rel = "index"
		}
	} else {
		r, err := filepath.Rel(root, source)
		if err != nil || strings.HasPrefix(r, "..") {
			r = filepath.Base(source)
		}
		rel = r
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(w.OutputDir, filepath.FromSlash(rel)+ext), nil
}

// ChunkPaths returns the file names for n documents written to path.
// A single document keeps path; otherwise chunk N (1-based) is written to
// <base>_chunk<N><ext>.
func ChunkPaths(path string, n int) []string {
	if n <= 1 {
		return []string{path}
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s_chunk%d%s", base, i+1, ext)
	}
	return paths
}

// Write stores docs at path, one file per chunk, and returns the paths
// written.
func (w *Writer) Write(path string, docs []string) ([]string, error) {
	paths := ChunkPaths(path, len(docs))
	for i, doc := range docs {
		dir := filepath.Dir(paths[i])
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
		if err := os.WriteFile(paths[i], []byte(doc), 0644); err != nil {
			return nil, fmt.Errorf("writing file %s: %w", paths[i], err)
		}
	}
	return paths[:len(docs)], nil
}

// WriteStream writes docs to out in order, each ending in a newline.
func WriteStream(out io.Writer, docs []string) error {
	for _, doc := range docs {
		if !strings.HasSuffix(doc, "\n") {
			doc += "\n"
		}
		if _, err := io.WriteString(out, doc); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// filenameFromURL converts a URL into a flat filename without the
// notebook extension.
// Example: https://example.com/nbs/demo.ipynb → example_com_nbs_demo
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return sanitize(rawURL)
	}

	parts := []string{sanitize(parsed.Host)}
	path := strings.TrimSuffix(strings.Trim(parsed.Path, "/"), ".ipynb")
	if path != "" {
		for _, seg := range strings.Split(path, "/") {
			parts = append(parts, sanitize(seg))
		}
	}
	return strings.Join(parts, "_")
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
