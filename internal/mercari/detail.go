package mercari

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lukman83/mercari-shopper/internal/models"
)

// Detail extracts one item page. Unlike Cards a missing price is tolerated
// and reads as 0, since a single requested item should still be returned.
func (e *Extractor) Detail(rawHTML, pageURL string) (*models.Listing, error) {
	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, err
	}
	root := doc.Selection
	text := cleanText(root)

	l := &models.Listing{
		Title:    firstNonEmpty(cleanText(e.sel.detailTitle.First(root)), noTitle),
		URL:      pageURL,
		ImageURL: e.imageURL(e.sel.detailImg.First(root)),
	}

	l.PriceJPY = e.detailPrice(root, text)
	l.Condition = detailCondition(text)
	l.Shipping = detailShipping(text)

	if m := likesRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			l.Likes = &n
		}
	}
	if soldRe.MatchString(text) {
		sold := true
		l.Sold = &sold
	}

	desc := cleanText(e.sel.detailDesc.First(root))
	if desc == "" {
		desc = root.Find("meta[name='description']").AttrOr("content", "")
	}
	l.DescriptionSnippet = truncateRunes(strings.TrimSpace(desc), descriptionRunes)

	seller := &models.Seller{Name: cleanText(e.sel.sellerName.First(root))}
	if m := ratingRe.FindStringSubmatch(text); m != nil {
		if r, err := strconv.ParseFloat(m[1], 64); err == nil && r >= 0 && r <= 5 {
			seller.Rating = &r
		}
	}
	if m := salesRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			seller.SalesCount = &n
		}
	}
	if !seller.IsZero() {
		l.Seller = seller
	}

	l.Normalize()
	return l, nil
}

// detailPrice tries the price regions first, then any yen amount on the page.
func (e *Extractor) detailPrice(root *goquery.Selection, pageText string) int64 {
	for _, c := range e.sel.detailPrice.Heads(root) {
		if t := cleanText(c); hasYen(t) {
			if v, ok := parseYen(t); ok {
				return v
			}
		}
	}
	if v, ok := parseYen(pageText); ok {
		return v
	}
	return 0
}

// detailCondition prefers the value printed next to the 商品の状態 label and
// falls back to the first condition label anywhere on the page.
func detailCondition(text string) string {
	if v := valueAfter(text, "商品の状態"); v != "" {
		if c, ok := models.FindCondition(v); ok {
			return c
		}
	}
	c, _ := models.FindCondition(text)
	return c
}

func detailShipping(text string) string {
	if v := valueAfter(text, "配送料の負担"); v != "" {
		return v
	}
	switch {
	case containsAny(text, "送料込み", "送料込"):
		return "送料込み"
	case containsAny(text, "着払い"):
		return "着払い"
	}
	return ""
}

func containsAny(text string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
