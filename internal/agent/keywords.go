package agent

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	symbolRe    = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s-]+`)
	separatorRe = regexp.MustCompile(`[\s,]+`)
)

// NormalizeKeywords turns free text into search keywords: symbols become
// spaces, tokens split on whitespace or commas, tokens shorter than two
// characters are dropped and duplicates keep their first position.
func NormalizeKeywords(raw string) []string {
	s := symbolRe.ReplaceAllString(raw, " ")
	seen := make(map[string]bool)
	var out []string
	for _, tok := range separatorRe.Split(s, -1) {
		tok = strings.TrimSpace(tok)
		if utf8.RuneCountInString(tok) < 2 || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}
