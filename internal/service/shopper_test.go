package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/platform"
)

type fakeScraper struct {
	listings  []models.Listing
	err       error
	opts      platform.SearchOpts
	enrichedN int
}

func (f *fakeScraper) Search(_ context.Context, _ *models.SearchQuery, opts platform.SearchOpts) ([]models.Listing, error) {
	f.opts = opts
	return f.listings, f.err
}

func (f *fakeScraper) Detail(_ context.Context, url, _ string) (*models.Listing, error) {
	return &models.Listing{Title: "detail", URL: url}, nil
}

func (f *fakeScraper) Enrich(_ context.Context, l []models.Listing, n int, _ string) []models.Listing {
	f.enrichedN = n
	out := append([]models.Listing(nil), l...)
	for i := 0; i < n && i < len(out); i++ {
		out[i].DescriptionSnippet = "enriched"
	}
	return out
}

func mustQuery(t *testing.T) *models.SearchQuery {
	t.Helper()
	max := int64(30000)
	q, err := models.NewSearchQuery(models.QueryInput{
		Keywords:  []string{"Nintendo", "Switch", "OLED", "White"},
		Condition: []string{"未使用に近い"},
		BudgetMax: &max,
	})
	require.NoError(t, err)
	return q
}

func TestRecommend_RanksAndWraps(t *testing.T) {
	fs := &fakeScraper{listings: []models.Listing{
		{Title: "Nintendo Switch (used)", PriceJPY: 25000, Condition: "目立った傷や汚れなし", URL: "https://jp.mercari.com/item/m2"},
		{Title: "Nintendo Switch OLED White", PriceJPY: 29800, Condition: "未使用に近い", URL: "https://jp.mercari.com/item/m1"},
	}}
	q := mustQuery(t)

	resp, err := New(fs).Recommend(context.Background(), RecommendRequest{Query: q, TopK: DefaultTopK, Engine: "http", Pages: 2, Details: 1})
	require.NoError(t, err)

	assert.Equal(t, DefaultTopK, resp.TopK)
	assert.Same(t, q, resp.Query)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "https://jp.mercari.com/item/m1", resp.Items[0].Listing.URL)
	assert.Equal(t, platform.SearchOpts{Engine: "http", Pages: 2}, fs.opts)
	assert.Equal(t, 1, fs.enrichedN)
}

func TestRecommend_NoResults(t *testing.T) {
	_, err := New(&fakeScraper{}).Recommend(context.Background(), RecommendRequest{Query: mustQuery(t)})
	assert.ErrorIs(t, err, models.ErrNoResults)
}

func TestRecommend_SearchErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&fakeScraper{err: boom}).Recommend(context.Background(), RecommendRequest{Query: mustQuery(t)})
	assert.ErrorIs(t, err, boom)
}

func TestRecommend_RequiresQuery(t *testing.T) {
	_, err := New(&fakeScraper{}).Recommend(context.Background(), RecommendRequest{})
	assert.ErrorIs(t, err, models.ErrInvalidQuery)
}

func TestRecommend_NonPositiveTopKKeepsOne(t *testing.T) {
	for _, topK := range []int{0, -2} {
		fs := &fakeScraper{listings: []models.Listing{
			{Title: "a", PriceJPY: 1, URL: "https://jp.mercari.com/item/a"},
			{Title: "b", PriceJPY: 2, URL: "https://jp.mercari.com/item/b"},
		}}
		resp, err := New(fs).Recommend(context.Background(), RecommendRequest{Query: mustQuery(t), TopK: topK})
		require.NoError(t, err)
		assert.Len(t, resp.Items, 1, "top_k %d", topK)
		assert.Equal(t, 1, resp.TopK)
		assert.Zero(t, fs.enrichedN)
	}
}
