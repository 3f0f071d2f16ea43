package mercari

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lukman83/mercari-shopper/internal/models"
)

// SearchParams returns the query string for one results page. Only the
// keyword is sent; budget, condition and sort are applied client-side
// because the storefront parameters for them are not stable.
func SearchParams(q *models.SearchQuery, page int) url.Values {
	v := url.Values{}
	v.Set("keyword", q.KeywordString())
	if page > 1 {
		v.Set("page_token", fmt.Sprintf("v1:%d", page-1))
	}
	return v
}

// SearchURL returns the absolute results URL for one page.
func SearchURL(baseURL string, q *models.SearchQuery, page int) string {
	return strings.TrimRight(baseURL, "/") + "/search?" + SearchParams(q, page).Encode()
}

// resolve turns href into an absolute URL against base. Unparseable hrefs
// resolve to "".
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
