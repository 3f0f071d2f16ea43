package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/mercari-shopper/internal/agent"
	"github.com/lukman83/mercari-shopper/internal/httputil"
	"github.com/lukman83/mercari-shopper/internal/mercari"
	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeShopper struct {
	got service.RecommendRequest
	err error
}

func (f *fakeShopper) Recommend(_ context.Context, req service.RecommendRequest) (*models.RecommendationResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	items := []models.RankedListing{{
		Listing: models.Listing{Title: "Switch", PriceJPY: 29800, URL: "https://jp.mercari.com/item/m1"},
		Score:   0.77,
		Reasons: []string{"Within budget (≤ ¥30,000)"},
	}}
	return models.NewRecommendationResponse(req.Query, req.TopK, items)
}

func (f *fakeShopper) Detail(_ context.Context, url, _ string) (*models.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !models.IsItemURL(url) {
		return nil, mercari.ErrNotItemURL
	}
	return &models.Listing{Title: "detail", PriceJPY: 100, URL: url}, nil
}

type fakeAsker struct{}

func (fakeAsker) Run(_ context.Context, text string, _ int) ([]agent.Message, error) {
	return []agent.Message{{Role: agent.RoleUser, Content: text}, {Role: agent.RoleAssistant, Content: "buy m1"}}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, NewRouter(Options{Shopper: &fakeShopper{}}), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestRequestIDPropagated(t *testing.T) {
	rec := do(t, NewRouter(Options{Shopper: &fakeShopper{}}), http.MethodGet, "/health", "", headerRequestID, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestSearch(t *testing.T) {
	shop := &fakeShopper{}
	r := NewRouter(Options{Shopper: shop})

	rec := do(t, r, http.MethodPost, "/search",
		`{"query":{"keywords":["Nintendo","Switch"],"budget_max":30000},"engine":"playwright","pages":2}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.RecommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TopK)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "https://jp.mercari.com/item/m1", resp.Items[0].Listing.URL)

	assert.Equal(t, mercari.EngineHeadless, shop.got.Engine)
	assert.Equal(t, 2, shop.got.Pages)
	assert.Equal(t, []string{"Nintendo", "Switch"}, shop.got.Query.Keywords)
}

func TestSearch_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"malformed json", `{"query":`, nil, http.StatusBadRequest},
		{"no keywords", `{"query":{"keywords":[]}}`, nil, http.StatusBadRequest},
		{"inverted budget", `{"query":{"keywords":["a"],"budget_min":5,"budget_max":1}}`, nil, http.StatusBadRequest},
		{"no results", `{"query":{"keywords":["a"]}}`, models.ErrNoResults, http.StatusNotFound},
		{"unknown engine", `{"query":{"keywords":["a"]},"engine":"fax"}`, mercari.ErrUnknownEngine, http.StatusBadRequest},
		{"upstream", `{"query":{"keywords":["a"]}}`, &httputil.StatusError{StatusCode: 503, URL: "u"}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, NewRouter(Options{Shopper: &fakeShopper{err: tc.err}}), http.MethodPost, "/search", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestDetail(t *testing.T) {
	r := NewRouter(Options{Shopper: &fakeShopper{}})

	rec := do(t, r, http.MethodPost, "/detail", `{"url":"https://jp.mercari.com/item/m9"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://jp.mercari.com/item/m9")

	rec = do(t, r, http.MethodPost, "/detail", `{"url":"https://jp.mercari.com/search"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/detail", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, NewRouter(Options{Shopper: &fakeShopper{err: errors.New("timeout")}}), http.MethodPost, "/detail", `{"url":"https://jp.mercari.com/item/m9"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAsk(t *testing.T) {
	rec := do(t, NewRouter(Options{Shopper: &fakeShopper{}}), http.MethodPost, "/ask", `{"text":"switch"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	r := NewRouter(Options{Shopper: &fakeShopper{}, Agent: fakeAsker{}})
	rec = do(t, r, http.MethodPost, "/ask", `{"text":"switch"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answer":"buy m1","turns":2}`, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/ask", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	r := NewRouter(Options{Shopper: &fakeShopper{}, APIKey: "s3cret"})
	body := `{"url":"https://jp.mercari.com/item/m1"}`

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/detail", body).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/detail", body, "Authorization", "Bearer nope").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/detail", body, "Authorization", "Bearer s3cret").Code)
}

func TestSearch_ExplicitZeroTopKPassedThrough(t *testing.T) {
	shop := &fakeShopper{}
	r := NewRouter(Options{Shopper: shop})

	do(t, r, http.MethodPost, "/search", `{"query":{"keywords":["switch"]},"top_k":0}`)
	assert.Equal(t, 0, shop.got.TopK)

	do(t, r, http.MethodPost, "/search", `{"query":{"keywords":["switch"]}}`)
	assert.Equal(t, service.DefaultTopK, shop.got.TopK)
}
