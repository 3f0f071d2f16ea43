package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ItemPathPrefix is the path every item detail URL starts with.
const ItemPathPrefix = "/item/"

// Seller is what a listing page reveals about the person selling.
type Seller struct {
	Name       string   `json:"name,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	SalesCount *int     `json:"sales_count,omitempty"`
}

// IsZero reports whether nothing is known about the seller.
func (s *Seller) IsZero() bool {
	return s == nil || (s.Name == "" && s.Rating == nil && s.SalesCount == nil)
}

// Listing is one marketplace item. Empty strings and nil pointers mean the value
// was not discoverable, not that it is absent on the marketplace.
type Listing struct {
	Title              string  `json:"title"`
	PriceJPY           int64   `json:"price_jpy"`
	Condition          string  `json:"condition,omitempty"`
	Shipping           string  `json:"shipping,omitempty"`
	URL                string  `json:"url"`
	ImageURL           string  `json:"image_url,omitempty"`
	Seller             *Seller `json:"seller,omitempty"`
	Sold               *bool   `json:"sold,omitempty"`
	Likes              *int    `json:"likes,omitempty"`
	DescriptionSnippet string  `json:"description_snippet,omitempty"`
}

// Normalize trims the free-text fields in place.
func (l *Listing) Normalize() {
	l.Title = strings.TrimSpace(l.Title)
	l.Condition = strings.TrimSpace(l.Condition)
	l.Shipping = strings.TrimSpace(l.Shipping)
	l.DescriptionSnippet = strings.TrimSpace(l.DescriptionSnippet)
	if l.Seller != nil {
		l.Seller.Name = strings.TrimSpace(l.Seller.Name)
	}
}

// Validate checks the listing invariants.
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("listing title is empty")
	}
	if l.PriceJPY < 0 {
		return fmt.Errorf("listing price %d is negative", l.PriceJPY)
	}
	if !IsItemURL(l.URL) {
		return fmt.Errorf("listing url %q is not an item url", l.URL)
	}
	if l.ImageURL != "" && !isAbsoluteURL(l.ImageURL) {
		return fmt.Errorf("listing image url %q is not absolute", l.ImageURL)
	}
	if l.Likes != nil && *l.Likes < 0 {
		return fmt.Errorf("listing likes %d is negative", *l.Likes)
	}
	if s := l.Seller; s != nil {
		if s.Rating != nil && (*s.Rating < 0 || *s.Rating > 5) {
			return fmt.Errorf("seller rating %.2f out of range [0,5]", *s.Rating)
		}
		if s.SalesCount != nil && *s.SalesCount < 0 {
			return fmt.Errorf("seller sales count %d is negative", *s.SalesCount)
		}
	}
	return nil
}

// IsItemURL reports whether raw has the shape https://<host>/item/<id>.
func IsItemURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	if u.Host == "" {
		return false
	}
	id, ok := strings.CutPrefix(u.Path, ItemPathPrefix)
	return ok && strings.Trim(id, "/") != ""
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}
