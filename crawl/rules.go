// Package crawl: source filtering rules.
// Decides which paths and URLs are notebooks, which directories to skip,
// and how URLs are normalized for deduplication.
package crawl

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// NotebookExt is the extension of notebook files.
const NotebookExt = ".ipynb"

// checkpointDir holds autosave copies written by Jupyter.
const checkpointDir = ".ipynb_checkpoints"

// staticExtensions are linked files never worth fetching during discovery.
var staticExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true,
	".css": true, ".js": true, ".mjs": true,
	".woff": true, ".woff2": true, ".ttf": true,
	".zip": true, ".tar": true, ".gz": true,
	".pdf": true, ".csv": true, ".parquet": true, ".py": true,
}

// IsNotebook reports whether a path or URL names a notebook file.
func IsNotebook(source string) bool {
	if parsed, err := url.Parse(source); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		source = parsed.Path
	}
	return strings.EqualFold(path.Ext(source), NotebookExt)
}

// SkipDir reports whether a directory should not be walked: checkpoint
// directories and hidden directories.
func SkipDir(name string) bool {
	name = filepath.Base(name)
	if name == checkpointDir {
		return true
	}
	return len(name) > 1 && strings.HasPrefix(name, ".") && name != ".."
}

// IsSameDomain checks if the given URL belongs to the specified domain.
func IsSameDomain(rawURL string, domain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Host == domain
}

// IsStaticAsset checks if a URL points to a file that is neither a page
// nor a notebook.
func IsStaticAsset(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	return staticExtensions[ext]
}

// NormalizeURL strips fragments and trailing slashes for deduplication.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String()
}
