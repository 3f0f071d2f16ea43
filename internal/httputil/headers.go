package httputil

import "net/http"

// BrowserHeaders returns browser-like headers for Japanese storefront pages.
// userAgent and acceptLanguage override the defaults when non-empty.
func BrowserHeaders(userAgent, acceptLanguage string) http.Header {
	if acceptLanguage == "" {
		acceptLanguage = "ja-JP,ja;q=0.9,en-US;q=0.8,en;q=0.7"
	}
	h := http.Header{}
	if userAgent != "" {
		h.Set("User-Agent", userAgent)
	}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", acceptLanguage)
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	return h
}

// JSONHeaders returns headers for JSON API calls.
func JSONHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	return h
}
