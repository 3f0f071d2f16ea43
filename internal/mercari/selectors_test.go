package mercari

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSelectors_EmptyPathIsDefault(t *testing.T) {
	sel, err := LoadSelectors("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSelectors(), sel)
}

func TestLoadSelectors_OverlaysNonEmptyLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.toml")
	content := `
anchors = ["a.card"]
detail_title = ["h2.title"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	sel, err := LoadSelectors(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.card"}, sel.Anchors)
	assert.Equal(t, []string{"h2.title"}, sel.DetailTitle)
	assert.Equal(t, DefaultSelectors().Containers, sel.Containers)

	e, err := NewExtractor("https://jp.mercari.com", sel)
	require.NoError(t, err)

	cards, err := e.Cards(`<div><a class="card" href="/item/z1">¥10</a><a href="/item/z2">¥20</a></div>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://jp.mercari.com/item/z1"}, urls(cards))
}

func TestLoadSelectors_Errors(t *testing.T) {
	_, err := LoadSelectors(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("anchors = [1, "), 0o600))
	_, err = LoadSelectors(path)
	assert.Error(t, err)
}

func TestNewExtractor_RejectsBadInput(t *testing.T) {
	sel := DefaultSelectors()
	sel.Anchors = []string{"a[["}
	_, err := NewExtractor("https://jp.mercari.com", sel)
	assert.Error(t, err)

	_, err = NewExtractor("/relative", DefaultSelectors())
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	doc, err := parseDocument(`<div><p class="a">1</p><p class="a">2</p><span>3</span></div>`)
	require.NoError(t, err)

	chain, err := compileChain([]string{"em", "p.a", "span"})
	require.NoError(t, err)

	assert.Equal(t, "1", cleanText(chain.First(doc.Selection)))
	assert.Len(t, chain.Heads(doc.Selection), 2)

	var all []string
	chain.Each(doc.Selection, func(s *goquery.Selection) { all = append(all, cleanText(s)) })
	assert.Equal(t, []string{"1", "2", "3"}, all)

	assert.Nil(t, Chain{}.First(doc.Selection))
}
