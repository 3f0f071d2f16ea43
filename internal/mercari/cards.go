package mercari

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/lukman83/mercari-shopper/internal/models"
)

const noTitle = "No title"

// Cards extracts the listings on a search results page. Every anchor selector
// is tried inside every container, so one item is usually matched many times;
// the result keeps one listing per URL at the position it was first seen,
// holding the values from the last match. Cards without a readable price are
// dropped. Missing optional fields never fail the page.
func (e *Extractor) Cards(rawHTML string) ([]models.Listing, error) {
	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, err
	}

	set := newListingSet()
	e.sel.containers.Each(doc.Selection, func(container *goquery.Selection) {
		e.sel.anchors.Each(container, func(a *goquery.Selection) {
			if l, ok := e.card(a); ok {
				set.put(l)
			}
		})
	})
	return set.list(), nil
}

func (e *Extractor) card(a *goquery.Selection) (models.Listing, bool) {
	href, ok := a.Attr("href")
	if !ok {
		return models.Listing{}, false
	}
	u := e.resolve(href)
	if !e.isItemURL(u) {
		return models.Listing{}, false
	}

	price, ok := e.cardPrice(a)
	if !ok {
		return models.Listing{}, false
	}

	title := firstNonEmpty(a.AttrOr("aria-label", ""), a.AttrOr("title", ""), cleanText(a))
	if title == "" {
		title = noTitle
	}

	l := models.Listing{
		Title:    title,
		PriceJPY: price,
		URL:      u,
		ImageURL: e.imageURL(e.sel.image.First(a)),
	}
	l.Condition, l.Shipping = e.cardMeta(a)
	l.Normalize()
	return l, true
}

// cardPrice reads the first candidate region that shows a yen sign; the
// anchor's own text is the last candidate.
func (e *Extractor) cardPrice(a *goquery.Selection) (int64, bool) {
	candidates := append(e.sel.price.Heads(a), a)
	for _, c := range candidates {
		if t := cleanText(c); hasYen(t) {
			return parseYen(t)
		}
	}
	return 0, false
}

// cardMeta scans the status/shipping regions and then the anchor's parent.
// The first region carrying a marker wins for each field.
func (e *Extractor) cardMeta(a *goquery.Selection) (condition, shipping string) {
	candidates := e.sel.meta.Heads(a)
	if p := a.Parent(); p.Length() > 0 {
		candidates = append(candidates, p)
	}
	for _, c := range candidates {
		t := cleanText(c)
		if condition == "" && hasConditionMarker(t) {
			condition = t
		}
		if shipping == "" && hasShippingMarker(t) {
			shipping = t
		}
	}
	return condition, shipping
}

// listingSet deduplicates by URL: first position, last value.
type listingSet struct {
	index map[string]int
	items []models.Listing
}

func newListingSet() *listingSet {
	return &listingSet{index: make(map[string]int)}
}

func (s *listingSet) put(l models.Listing) {
	if i, ok := s.index[l.URL]; ok {
		s.items[i] = l
		return
	}
	s.index[l.URL] = len(s.items)
	s.items = append(s.items, l)
}

func (s *listingSet) list() []models.Listing {
	return s.items
}

// mergeByURL flattens pages in order with the same dedup rule as one page.
func mergeByURL(pages [][]models.Listing) []models.Listing {
	set := newListingSet()
	for _, p := range pages {
		for _, l := range p {
			set.put(l)
		}
	}
	return set.list()
}
