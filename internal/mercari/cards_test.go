package mercari

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/mercari-shopper/internal/models"
)

const resultsPage = `<html><body>
<section>
  <ul>
    <li><a data-testid="ItemCell" href="/item/m111" aria-label="Nintendo Switch OLED White">
      <img src="https://static.mercdn.net/thumb/m111.jpg">
      <span data-testid="ItemPrice">¥29,800</span>
      <span data-testid="ItemStatus">未使用に近い</span>
    </a><span>送料込み</span></li>
    <li><a href="/item/m222" title="Switch Lite"><div>￥ 12,000</div></a></li>
    <li><a href="/item/m333">No price here</a></li>
    <li><a href="/user/profile/1">¥100 seller</a></li>
    <li><a href="https://jp.mercari.com/item/m444"><p>  Camera
      body </p><p>¥5,000</p><img data-src="/img/c.jpg"></a><span>目立った傷や汚れなし</span></li>
  </ul>
</section>
</body></html>`

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor("https://jp.mercari.com", DefaultSelectors())
	require.NoError(t, err)
	return e
}

func urls(ls []models.Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.URL
	}
	return out
}

func TestCards_ResultsPage(t *testing.T) {
	t.Parallel()
	cards, err := newTestExtractor(t).Cards(resultsPage)
	require.NoError(t, err)

	require.Equal(t, []string{
		"https://jp.mercari.com/item/m111",
		"https://jp.mercari.com/item/m222",
		"https://jp.mercari.com/item/m444",
	}, urls(cards))

	oled := cards[0]
	assert.Equal(t, "Nintendo Switch OLED White", oled.Title)
	assert.Equal(t, int64(29800), oled.PriceJPY)
	assert.Equal(t, "未使用に近い", oled.Condition)
	assert.Contains(t, oled.Shipping, "送料込み")
	assert.Equal(t, "https://static.mercdn.net/thumb/m111.jpg", oled.ImageURL)

	lite := cards[1]
	assert.Equal(t, "Switch Lite", lite.Title)
	assert.Equal(t, int64(12000), lite.PriceJPY)
	assert.Empty(t, lite.Condition)

	camera := cards[2]
	assert.Equal(t, "Camera body ¥5,000", camera.Title, "visible text, whitespace collapsed")
	assert.Equal(t, int64(5000), camera.PriceJPY)
	assert.Contains(t, camera.Condition, "目立った傷や汚れなし")
	assert.Equal(t, "https://jp.mercari.com/img/c.jpg", camera.ImageURL)

	for _, c := range cards {
		assert.NoError(t, c.Validate())
	}
}

func TestCards_DedupLastSeenWinsAtFirstPosition(t *testing.T) {
	t.Parallel()
	page := `<div>
		<a href="/item/mX" title="first">¥100</a>
		<a href="/item/mY" title="other">¥50</a>
		<a href="/item/mX" title="second">¥200</a>
	</div>`

	cards, err := newTestExtractor(t).Cards(page)
	require.NoError(t, err)

	require.Len(t, cards, 2)
	assert.Equal(t, "https://jp.mercari.com/item/mX", cards[0].URL)
	assert.Equal(t, "second", cards[0].Title)
	assert.Equal(t, int64(200), cards[0].PriceJPY)
	assert.Equal(t, "other", cards[1].Title)
}

func TestCards_TitleFallbacks(t *testing.T) {
	t.Parallel()
	page := `<div>
		<a href="/item/a1" aria-label=" " title="from title">¥1</a>
		<a href="/item/a2"><img src="x.jpg"><span data-testid="ItemPrice">¥2</span></a>
	</div>`

	cards, err := newTestExtractor(t).Cards(page)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "from title", cards[0].Title)
	assert.Equal(t, "¥2", cards[1].Title)
}

func TestCards_EmptyAndJunkInput(t *testing.T) {
	t.Parallel()
	e := newTestExtractor(t)

	for _, page := range []string{"", "<html>", "plain text ¥100", "<a href='/item/'>¥5</a>"} {
		cards, err := e.Cards(page)
		assert.NoError(t, err, page)
		assert.Empty(t, cards, page)
	}
}

func TestCards_ForeignHostDiscarded(t *testing.T) {
	t.Parallel()
	page := `<div>
		<a data-item-id="m1" href="https://example.com/item/m1">¥100</a>
		<a data-item-id="m2" href="//jp.mercari.com/item/m2">¥200</a>
	</div>`

	cards, err := newTestExtractor(t).Cards(page)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://jp.mercari.com/item/m2"}, urls(cards))
}

func TestMergeByURL(t *testing.T) {
	t.Parallel()
	a := models.Listing{URL: "u1", Title: "a"}
	b := models.Listing{URL: "u2", Title: "b"}
	a2 := models.Listing{URL: "u1", Title: "a2"}

	merged := mergeByURL([][]models.Listing{{a, b}, nil, {a2}})

	require.Len(t, merged, 2)
	assert.Equal(t, "a2", merged[0].Title)
	assert.Equal(t, "b", merged[1].Title)
}
