package mercari

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Extractor turns raw storefront markup into listings. It holds no per-page
// state and is safe for concurrent use.
type Extractor struct {
	base       *url.URL
	itemPrefix string
	sel        *compiledSelectors
}

// NewExtractor compiles sel for pages served from baseURL.
func NewExtractor(baseURL string, sel Selectors) (*Extractor, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", baseURL)
	}
	compiled, err := sel.compile()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		base:       base,
		itemPrefix: base.Scheme + "://" + base.Host + "/item/",
		sel:        compiled,
	}, nil
}

func parseDocument(rawHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

func (e *Extractor) resolve(href string) string {
	return resolve(e.base, href)
}

func (e *Extractor) isItemURL(u string) bool {
	id, ok := strings.CutPrefix(u, e.itemPrefix)
	return ok && strings.Trim(id, "/") != ""
}

// imageURL reads src (or data-src for lazy images) and makes it absolute.
func (e *Extractor) imageURL(img *goquery.Selection) string {
	if img == nil {
		return ""
	}
	src := firstNonEmpty(img.AttrOr("src", ""), img.AttrOr("data-src", ""))
	if src == "" || strings.HasPrefix(src, "data:") {
		return ""
	}
	return e.resolve(src)
}
