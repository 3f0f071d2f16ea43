package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/mercari-shopper/internal/filter"
	"github.com/lukman83/mercari-shopper/internal/mercari"
	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/platform"
)

type stubScraper struct {
	lastOpts platform.SearchOpts
}

func (s *stubScraper) Search(_ context.Context, q *models.SearchQuery, opts platform.SearchOpts) ([]models.Listing, error) {
	s.lastOpts = opts
	all := []models.Listing{
		{Title: "Switch OLED White", PriceJPY: 29800, Condition: "未使用に近い", URL: "https://jp.mercari.com/item/m1"},
		{Title: "Switch Lite", PriceJPY: 15000, Condition: "目立った傷や汚れなし", URL: "https://jp.mercari.com/item/m2"},
		{Title: "Switch bundle", PriceJPY: 45000, URL: "https://jp.mercari.com/item/m3"},
	}
	return filter.Apply(all, q), nil
}

func (s *stubScraper) Detail(_ context.Context, url, _ string) (*models.Listing, error) {
	if !models.IsItemURL(url) {
		return nil, mercari.ErrNotItemURL
	}
	return &models.Listing{Title: "detail", PriceJPY: 1, URL: url}, nil
}

func (s *stubScraper) Enrich(_ context.Context, l []models.Listing, _ int, _ string) []models.Listing {
	return l
}

func call(t *testing.T, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return res, text.Text
}

func withStub(t *testing.T) *stubScraper {
	t.Helper()
	s := &stubScraper{}
	platform.Register(mercari.Platform, s)
	return s
}

func TestSearchMercari(t *testing.T) {
	stub := withStub(t)

	res, text := call(t, handleSearchMercari, map[string]any{
		"keywords":   []any{"Switch"},
		"budget_max": float64(30000),
		"sort":       "price_asc",
		"pages":      float64(2),
	})
	require.False(t, res.IsError, text)

	var listings []models.Listing
	require.NoError(t, json.Unmarshal([]byte(text), &listings))
	require.Len(t, listings, 2)
	assert.Equal(t, "https://jp.mercari.com/item/m2", listings[0].URL)
	assert.Equal(t, 2, stub.lastOpts.Pages)
}

func TestSearchMercari_InvalidQuery(t *testing.T) {
	withStub(t)

	res, text := call(t, handleSearchMercari, map[string]any{"keywords": []any{}})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "keyword")

	res, _ = call(t, handleSearchMercari, map[string]any{"keywords": []any{"a"}, "platform": "rakuma"})
	assert.True(t, res.IsError)
}

func TestFetchListingDetail(t *testing.T) {
	withStub(t)

	res, text := call(t, handleFetchListingDetail, map[string]any{"url": "https://jp.mercari.com/item/m7"})
	require.False(t, res.IsError, text)
	assert.Contains(t, text, "https://jp.mercari.com/item/m7")

	res, text = call(t, handleFetchListingDetail, map[string]any{})
	assert.True(t, res.IsError)
	assert.Equal(t, "url is required", text)

	res, _ = call(t, handleFetchListingDetail, map[string]any{"url": "https://jp.mercari.com/search"})
	assert.True(t, res.IsError)
}

func TestRecommendListings(t *testing.T) {
	withStub(t)

	res, text := call(t, handleRecommendListings, map[string]any{
		"keywords":  []any{"Switch", "OLED", "White"},
		"condition": []any{"未使用に近い"},
		"top_k":     float64(1),
	})
	require.False(t, res.IsError, text)

	var resp models.RecommendationResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	assert.Equal(t, 1, resp.TopK)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "https://jp.mercari.com/item/m1", resp.Items[0].Listing.URL)
	assert.NotEmpty(t, resp.Items[0].Reasons)
}

func TestRecommendListings_NoResults(t *testing.T) {
	withStub(t)

	res, text := call(t, handleRecommendListings, map[string]any{
		"keywords":   []any{"Switch"},
		"budget_max": float64(100),
	})
	assert.True(t, res.IsError)
	assert.Contains(t, text, models.ErrNoResults.Error())
}

func TestHTTPHandler(t *testing.T) {
	h := newHTTPHandler("s3cret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	req = httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}
