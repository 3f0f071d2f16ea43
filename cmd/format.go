package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lukman83/mercari-shopper/internal/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	priceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	reasonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printListingsTable prints listings in a human-friendly card layout.
func printListingsTable(w io.Writer, listings []models.Listing) {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No listings found.")
		return
	}
	for i, l := range listings {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, " %d. %s\n", i+1, titleStyle.Render(truncate(l.Title, 70)))
		fmt.Fprintf(w, "    %s%s\n", priceStyle.Render(formatYen(l.PriceJPY)), listingMeta(l))
		fmt.Fprintf(w, "    %s\n", mutedStyle.Render(cleanURL(l.URL)))
	}
}

// printRecommendations prints ranked listings with their score and reasons.
func printRecommendations(w io.Writer, resp *models.RecommendationResponse) {
	for i, r := range resp.Items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		l := r.Listing
		fmt.Fprintf(w, "%d. %s  %s\n", i+1, titleStyle.Render(l.Title), priceStyle.Render(formatYen(l.PriceJPY)))
		if l.Condition != "" {
			fmt.Fprintf(w, "   - Condition: %s\n", l.Condition)
		}
		if l.Seller != nil && l.Seller.Rating != nil {
			fmt.Fprintf(w, "   - Seller: %s (%.1f/5)\n", l.Seller.Name, *l.Seller.Rating)
		}
		fmt.Fprintf(w, "   - URL: %s\n", cleanURL(l.URL))
		fmt.Fprintf(w, "   - Score: %.4f\n", r.Score)
		if len(r.Reasons) > 0 {
			fmt.Fprintf(w, "   - Reasons: %s\n", reasonStyle.Render(strings.Join(r.Reasons, ", ")))
		}
	}
}

func printListingDetail(w io.Writer, l *models.Listing) {
	fmt.Fprintln(w, titleStyle.Render(l.Title))
	fmt.Fprintf(w, "  Price:     %s\n", priceStyle.Render(formatYen(l.PriceJPY)))
	if l.Condition != "" {
		fmt.Fprintf(w, "  Condition: %s\n", l.Condition)
	}
	if l.Shipping != "" {
		fmt.Fprintf(w, "  Shipping:  %s\n", l.Shipping)
	}
	if l.Sold != nil && *l.Sold {
		fmt.Fprintln(w, "  Status:    SOLD")
	}
	if l.Likes != nil {
		fmt.Fprintf(w, "  Likes:     %d\n", *l.Likes)
	}
	if s := l.Seller; !s.IsZero() {
		line := s.Name
		if s.Rating != nil {
			line += fmt.Sprintf("  %.1f/5", *s.Rating)
		}
		if s.SalesCount != nil {
			line += fmt.Sprintf("  (%d sales)", *s.SalesCount)
		}
		fmt.Fprintf(w, "  Seller:    %s\n", strings.TrimSpace(line))
	}
	if l.DescriptionSnippet != "" {
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render(l.DescriptionSnippet))
	}
	fmt.Fprintf(w, "  %s\n", cleanURL(l.URL))
}

func listingMeta(l models.Listing) string {
	var parts []string
	if l.Condition != "" {
		parts = append(parts, l.Condition)
	}
	if l.Shipping != "" {
		parts = append(parts, l.Shipping)
	}
	if l.Sold != nil && *l.Sold {
		parts = append(parts, "[SOLD]")
	}
	if len(parts) == 0 {
		return ""
	}
	return "  |  " + strings.Join(parts, "  |  ")
}

// formatYen formats an int64 price as "¥1,234,567".
func formatYen(n int64) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := fmt.Sprintf("%d", n)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return sign + "¥" + strings.Join(parts, ",")
}

// cleanURL strips tracking query params and returns just the item page URL.
func cleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
