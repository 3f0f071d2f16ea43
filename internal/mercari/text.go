package mercari

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	yenRe    = regexp.MustCompile(`[¥￥]\s?([\d,]+)`)
	ratingRe = regexp.MustCompile(`(\d(?:\.\d+)?)\s*/\s*5`)
	salesRe  = regexp.MustCompile(`出品数\s*[:：]?\s*(\d+)`)
	likesRe  = regexp.MustCompile(`いいね[!！]?\s*(\d+)`)
	soldRe   = regexp.MustCompile(`売り切れ|SOLD`)
)

const descriptionRunes = 200

// parseYen finds the first yen amount in text.
func parseYen(text string) (int64, bool) {
	m := yenRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func hasYen(text string) bool {
	return strings.ContainsAny(text, "¥￥")
}

func hasConditionMarker(text string) bool {
	return strings.Contains(text, "未使用") || strings.Contains(text, "傷") || strings.Contains(text, "汚れ")
}

func hasShippingMarker(text string) bool {
	return strings.Contains(text, "送料込") || strings.Contains(text, "着払い")
}

// cleanText returns the visible text under s with text nodes separated by a
// single space. Script and style bodies are skipped.
func cleanText(s *goquery.Selection) string {
	if s == nil {
		return ""
	}
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		*parts = append(*parts, n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// firstNonEmpty returns the first value that is not blank, trimmed.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// valueAfter returns the first whitespace-separated field following label.
func valueAfter(text, label string) string {
	_, rest, ok := strings.Cut(text, label)
	if !ok {
		return ""
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
