// Package catalog discovers downloadable survey data files on the
// health-statistics listing pages.
package catalog

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/utils"
)

// docSuffix is the trailing label on the documentation-link cell of each
// listing row ("DEMO_L Doc"); stripping it leaves the dataset code.
const docSuffix = " Doc"

// Catalog holds everything discovered on one or more listing pages: the
// absolute URLs of the downloadable data files and a mapping from short
// dataset codes to their human-readable descriptions.
type Catalog struct {
	Files  []string          `yaml:"files"`
	Labels map[string]string `yaml:"labels"`
}

// Save persists the catalog so later build stages can name tables without
// refetching the listing pages.
func (c *Catalog) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// LoadFile reads a catalog persisted by Save.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c := New()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Labels == nil {
		c.Labels = map[string]string{}
	}
	return c, nil
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{Labels: map[string]string{}}
}

// Merge folds src into dst. File URLs are appended in src order, skipping
// duplicates; labels from src win on conflict.
func Merge(dst, src *Catalog) {
	seen := make(map[string]bool, len(dst.Files))
	for _, f := range dst.Files {
		seen[f] = true
	}
	for _, f := range src.Files {
		if !seen[f] {
			dst.Files = append(dst.Files, f)
			seen[f] = true
		}
	}
	for code, desc := range src.Labels {
		dst.Labels[code] = desc
	}
}

// Fetch retrieves one listing page and extracts its catalog. The page fetch
// is fatal on failure: without the listing there is nothing to download.
// Every returned file URL is absolute, resolved against the site origin, and
// ends in ext (case-insensitive).
func Fetch(client *http.Client, listingURL, ext string) (*Catalog, error) {
	resp, err := client.Get(listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", listingURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch listing %s: unexpected status %s", listingURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", listingURL, err)
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}
	return Parse(doc, base, ext), nil
}

// Parse extracts the catalog from an already-parsed listing document.
// Split out from Fetch so the extraction logic is testable offline.
func Parse(doc *goquery.Document, base *url.URL, ext string) *Catalog {
	cat := New()
	lowExt := strings.ToLower(ext)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(strings.ToLower(href), lowExt) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		cat.Files = append(cat.Files, base.ResolveReference(ref).String())
	})

	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		desc := strings.TrimSpace(cells.Eq(0).Text())
		code := strings.TrimSpace(cells.Eq(1).Text())
		code = strings.TrimSuffix(code, docSuffix)
		if code == "" || desc == "" {
			return
		}
		cat.Labels[code] = desc
	})

	return cat
}
