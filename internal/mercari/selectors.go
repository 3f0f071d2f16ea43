package mercari

import (
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/pelletier/go-toml/v2"
)

// Selectors lists the CSS selectors tried, in order, for each page region.
// The storefront markup changes without notice, so every list can be
// overridden from a TOML file instead of a code change.
type Selectors struct {
	// Search results page. Every anchor selector is tried inside every
	// container; Price and Meta are searched inside the anchor.
	Containers []string `toml:"containers"`
	Anchors    []string `toml:"anchors"`
	Price      []string `toml:"price"`
	Meta       []string `toml:"meta"`
	Image      []string `toml:"image"`

	// Item page.
	DetailTitle       []string `toml:"detail_title"`
	DetailPrice       []string `toml:"detail_price"`
	DetailDescription []string `toml:"detail_description"`
	DetailImage       []string `toml:"detail_image"`
	SellerName        []string `toml:"seller_name"`
}

// DefaultSelectors returns the built-in selector lists.
func DefaultSelectors() Selectors {
	return Selectors{
		Containers: []string{"section", "div", "ul"},
		Anchors: []string{
			"a[data-testid='ItemCell']",
			"a[data-testid='itemCell']",
			"a[data-item-id]",
			"li a[href^='/item/']",
			"a[href^='/item/']",
			"a[href^='https://jp.mercari.com/item/']",
		},
		Price: []string{"[data-testid='ItemPrice']", "[class*='price']"},
		Meta:  []string{"[data-testid='ItemStatus']", "[data-testid='ItemShipping']"},
		Image: []string{"img"},

		DetailTitle: []string{"[data-testid='name'] h1", "h1", "[data-testid='ItemTitle']"},
		DetailPrice: []string{"[data-testid='price']", "[data-testid='Price']", "[class*='price']"},
		DetailDescription: []string{
			"[data-testid='description']",
			"[data-testid='ItemDescription']",
		},
		DetailImage: []string{"[data-testid='image-0'] img", "img"},
		SellerName: []string{
			"[data-testid='seller-name']",
			"a[href^='/user/profile/'] p",
			"a[href^='/user/profile/']",
		},
	}
}

// LoadSelectors reads a TOML file and overlays every non-empty list onto the
// defaults. An empty path returns the defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors: %w", err)
	}
	var override Selectors
	if err := toml.Unmarshal(data, &override); err != nil {
		return sel, fmt.Errorf("parse selectors %s: %w", path, err)
	}

	overlay(&sel.Containers, override.Containers)
	overlay(&sel.Anchors, override.Anchors)
	overlay(&sel.Price, override.Price)
	overlay(&sel.Meta, override.Meta)
	overlay(&sel.Image, override.Image)
	overlay(&sel.DetailTitle, override.DetailTitle)
	overlay(&sel.DetailPrice, override.DetailPrice)
	overlay(&sel.DetailDescription, override.DetailDescription)
	overlay(&sel.DetailImage, override.DetailImage)
	overlay(&sel.SellerName, override.SellerName)
	return sel, nil
}

func overlay(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

// Matcher returns the candidate nodes for one selector under s.
type Matcher func(s *goquery.Selection) *goquery.Selection

// CSS compiles a CSS selector into a Matcher.
func CSS(selector string) (Matcher, error) {
	compiled, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	return func(s *goquery.Selection) *goquery.Selection {
		return s.FindMatcher(compiled)
	}, nil
}

// Chain is an ordered fallback list of matchers.
type Chain []Matcher

func compileChain(selectors []string) (Chain, error) {
	chain := make(Chain, 0, len(selectors))
	for _, s := range selectors {
		m, err := CSS(s)
		if err != nil {
			return nil, err
		}
		chain = append(chain, m)
	}
	return chain, nil
}

// Each calls fn for every node every matcher finds, matcher by matcher.
func (c Chain) Each(s *goquery.Selection, fn func(*goquery.Selection)) {
	for _, m := range c {
		m(s).Each(func(_ int, n *goquery.Selection) { fn(n) })
	}
}

// Heads returns the first node of each matcher that found anything.
func (c Chain) Heads(s *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	for _, m := range c {
		if found := m(s); found.Length() > 0 {
			out = append(out, found.First())
		}
	}
	return out
}

// First returns the first node found by the first matcher that finds one.
func (c Chain) First(s *goquery.Selection) *goquery.Selection {
	for _, m := range c {
		if found := m(s); found.Length() > 0 {
			return found.First()
		}
	}
	return nil
}

type compiledSelectors struct {
	containers, anchors, price, meta, image         Chain
	detailTitle, detailPrice, detailDesc, detailImg Chain
	sellerName                                      Chain
}

func (s Selectors) compile() (*compiledSelectors, error) {
	var (
		c   compiledSelectors
		err error
	)
	targets := []struct {
		dst *Chain
		src []string
	}{
		{&c.containers, s.Containers},
		{&c.anchors, s.Anchors},
		{&c.price, s.Price},
		{&c.meta, s.Meta},
		{&c.image, s.Image},
		{&c.detailTitle, s.DetailTitle},
		{&c.detailPrice, s.DetailPrice},
		{&c.detailDesc, s.DetailDescription},
		{&c.detailImg, s.DetailImage},
		{&c.sellerName, s.SellerName},
	}
	for _, t := range targets {
		if *t.dst, err = compileChain(t.src); err != nil {
			return nil, err
		}
	}
	return &c, nil
}
