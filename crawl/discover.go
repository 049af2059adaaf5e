// Package crawl discovers notebooks for --all mode.
// A local root is walked recursively; a URL root is searched through its
// sitemap.xml, then by following links on index pages. Discovery is kept
// separate from the distillation pipeline.
package crawl

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// maxPages bounds link crawling so a large site cannot run away.
const maxPages = 100

// sitemapURL holds a URL from a sitemap.xml.
type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapIndex is the root element of a sitemap.xml.
type sitemapIndex struct {
	URLs []sitemapURL `xml:"url"`
}

// Discover returns the notebooks under root in a stable order.
func Discover(ctx context.Context, root string, fetcher core.Fetcher) ([]string, error) {
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
		return DiscoverURL(ctx, root, fetcher)
	}
	return DiscoverDir(root)
}

// DiscoverDir walks root for notebook files, skipping checkpoint and
// hidden directories. A root that is itself a notebook is returned alone.
func DiscoverDir(root string) ([]string, error) {
	var notebooks []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsNotebook(p) {
			notebooks = append(notebooks, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return notebooks, nil
}

// DiscoverURL finds notebooks linked under baseURL. It first tries
// sitemap.xml, then falls back to crawling index pages on the same host
// below the base path.
func DiscoverURL(ctx context.Context, baseURL string, fetcher core.Fetcher) ([]string, error) {
	if IsNotebook(baseURL) {
		return []string{baseURL}, nil
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	sitemapURLStr := fmt.Sprintf("%s://%s/sitemap.xml", parsed.Scheme, parsed.Host)
	notebooks, err := discoverFromSitemap(ctx, sitemapURLStr, parsed.Host)
	if err == nil && len(notebooks) > 0 {
		return notebooks, nil
	}

	return discoverFromLinks(ctx, baseURL, parsed, fetcher)
}

// discoverFromSitemap fetches sitemap.xml and keeps notebook URLs.
func discoverFromSitemap(ctx context.Context, sitemapURL string, domain string) ([]string, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var sitemap sitemapIndex
	if err := xml.Unmarshal(body, &sitemap); err != nil {
		return nil, err
	}

	found := NewQueue()
	for _, u := range sitemap.URLs {
		loc := NormalizeURL(strings.TrimSpace(u.Loc))
		if IsSameDomain(loc, domain) && IsNotebook(loc) {
			found.Add(loc)
		}
	}
	return found.All(), nil
}

// discoverFromLinks crawls index pages breadth first and collects the
// notebook links they contain.
func discoverFromLinks(ctx context.Context, startURL string, base *url.URL, fetcher core.Fetcher) ([]string, error) {
	// Page URLs keep their trailing slash: relative links resolve against it.
	pages := NewQueue()
	pages.Add(startURL)
	notebooks := NewQueue()
	prefix := strings.TrimSuffix(base.Path, "/")

	for pages.HasNext() && pages.Processed() < maxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageURL := pages.Next()

		result, err := fetcher.Fetch(ctx, pageURL)
		if err != nil {
			continue // a broken index page does not stop discovery
		}

		links, err := extractLinks(result.Data, pageURL)
		if err != nil {
			continue
		}

		for _, link := range links {
			if !IsSameDomain(link, base.Host) {
				continue
			}
			switch {
			case IsNotebook(link):
				notebooks.Add(NormalizeURL(link))
			case !IsStaticAsset(link) && underPath(link, prefix):
				pages.Add(link)
			}
		}
	}

	return notebooks.All(), nil
}

func underPath(rawURL, prefix string) bool {
	if prefix == "" {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Path == prefix || strings.HasPrefix(parsed.Path, prefix+"/")
}

// extractLinks extracts all href values from <a> tags, resolving relative URLs.
func extractLinks(page []byte, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		if resolved := resolveURL(href, base); resolved != "" {
			links = append(links, resolved)
		}
	})

	return links, nil
}

// resolveURL resolves a potentially relative URL against a base.
func resolveURL(href string, base *url.URL) string {
	if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "#") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	return resolved.String()
}
