package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/mercari-shopper/config"
	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/platform"
)

type fakeShopper struct {
	mu      sync.Mutex
	queries []*models.SearchQuery
	opts    []platform.SearchOpts
	err     error
}

func (f *fakeShopper) Search(_ context.Context, q *models.SearchQuery, opts platform.SearchOpts) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return []models.Listing{{Title: "Switch OLED", PriceJPY: 29800, URL: "https://jp.mercari.com/item/m1"}}, nil
}

func (f *fakeShopper) Detail(_ context.Context, url, _ string) (*models.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Listing{Title: "detail", PriceJPY: 1, URL: url}, nil
}

func decodeOutput(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestDispatch_Search(t *testing.T) {
	shop := &fakeShopper{}
	tb := NewToolbox(shop, "http")

	out := decodeOutput(t, tb.Dispatch(context.Background(), ToolSearch, json.RawMessage(`{"keywords":["スイッチ"],"budget_max":30000}`)))

	assert.Equal(t, true, out["ok"])
	require.Len(t, out["result"], 1)
	require.Len(t, shop.queries, 1)
	q := shop.queries[0]
	assert.Equal(t, "LLM structured", q.RawText)
	assert.Equal(t, toolSearchLimit, q.Limit)
	assert.Equal(t, int64(30000), *q.BudgetMax)
	assert.Equal(t, platform.SearchOpts{Engine: "http", Pages: 1}, shop.opts[0])
}

func TestDispatch_SearchLimitCapped(t *testing.T) {
	shop := &fakeShopper{}
	NewToolbox(shop, "").Dispatch(context.Background(), ToolSearch, json.RawMessage(`{"keywords":["a"],"limit":500}`))

	require.Len(t, shop.queries, 1)
	assert.Equal(t, models.MaxLimit, shop.queries[0].Limit)
}

func TestDispatch_Errors(t *testing.T) {
	tb := NewToolbox(&fakeShopper{}, "http")
	ctx := context.Background()

	out := decodeOutput(t, tb.Dispatch(ctx, ToolSearch, json.RawMessage(`{"keywords":[]}`)))
	assert.Equal(t, false, out["ok"])
	assert.Contains(t, out["error"], "keyword")

	out = decodeOutput(t, tb.Dispatch(ctx, ToolDetail, nil))
	assert.Equal(t, false, out["ok"])
	assert.Equal(t, "url is required", out["error"])

	out = decodeOutput(t, tb.Dispatch(ctx, "buy_it_now", nil))
	assert.Equal(t, map[string]any{"error": "Tool 'buy_it_now' not implemented"}, out)

	failing := NewToolbox(&fakeShopper{err: errors.New("upstream down")}, "http")
	out = decodeOutput(t, failing.Dispatch(ctx, ToolDetail, json.RawMessage(`{"url":"https://jp.mercari.com/item/m1"}`)))
	assert.Equal(t, false, out["ok"])
	assert.Equal(t, "upstream down", out["error"])
}

func TestOpenAI_RunLoop(t *testing.T) {
	var (
		mu       sync.Mutex
		calls    int
		lastBody oaiRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&lastBody))
		calls++

		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.Write([]byte(`{"choices":[{"message":{"content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"search_mercari","arguments":"{\"keywords\":[\"スイッチ\"]}"}}]}}]}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"1. Switch OLED ¥29,800"}}]}`))
	}))
	defer srv.Close()

	shop := &fakeShopper{}
	llm := NewOpenAI(srv.Client(), srv.URL+"/v1/", "sk-test", "")
	conv, err := New(llm, NewToolbox(shop, "http")).Run(context.Background(), "Nintendo Switch under 30000 yen", 3)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, 2, calls)
	require.Len(t, conv, 5)
	assert.Equal(t, RoleTool, conv[3].Role)
	assert.Equal(t, "call_1", conv[3].ToolCallID)
	assert.Equal(t, true, decodeOutput(t, conv[3].Content)["ok"])
	assert.Equal(t, "1. Switch OLED ¥29,800", FinalAnswer(conv))

	assert.Equal(t, defaultOpenAIModel, lastBody.Model)
	assert.Equal(t, "auto", lastBody.ToolChoice)
	assert.InDelta(t, 0.3, lastBody.Temperature, 1e-9)
	require.Len(t, lastBody.Messages, 4)
	assert.Equal(t, `{"keywords":["スイッチ"]}`, lastBody.Messages[2].ToolCalls[0].Function.Arguments)
	assert.Len(t, shop.queries, 1)
}

func TestOpenAI_StopsAtMaxSteps(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		w.Write([]byte(`{"choices":[{"message":{"tool_calls":[{"id":"c","type":"function","function":{"name":"nope","arguments":""}}]}}]}`))
	}))
	defer srv.Close()

	conv, err := NewOpenAI(srv.Client(), srv.URL, "k", "m").RunLoop(context.Background(), Prompt("x"), nil, NewToolbox(&fakeShopper{}, "").Dispatch, 2)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
	assert.Len(t, conv, 2+2*2)
	assert.Contains(t, conv[3].Content, "not implemented")
}

func TestOpenAI_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(NewOpenAI(srv.Client(), srv.URL, "k", "m"), NewToolbox(&fakeShopper{}, "")).Run(context.Background(), "x", 0)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestAnthropic_RunLoop(t *testing.T) {
	var (
		mu       sync.Mutex
		calls    int
		lastBody antRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&lastBody))
		calls++

		if calls == 1 {
			w.Write([]byte(`{"content":[{"type":"text","text":"Searching."},{"type":"tool_use","id":"tu_1","name":"fetch_listing_detail","input":{"url":"https://jp.mercari.com/item/m1"}},{"type":"tool_use","id":"tu_2","name":"search_mercari","input":{"keywords":["a"]}}],"stop_reason":"tool_use"}`))
			return
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"done"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	llm := NewAnthropic(srv.Client(), srv.URL, "ak-test", "")
	conv, err := New(llm, NewToolbox(&fakeShopper{}, "http")).Run(context.Background(), "find a switch", 3)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, 2, calls)
	assert.Equal(t, "done", FinalAnswer(conv))

	assert.Equal(t, defaultAnthropicModel, lastBody.Model)
	assert.Equal(t, anthropicMaxTokens, lastBody.MaxTokens)
	assert.Contains(t, lastBody.System, "Mercari Japan")
	require.Len(t, lastBody.Messages, 3)
	assert.Equal(t, RoleAssistant, lastBody.Messages[1].Role)
	assert.Len(t, lastBody.Messages[1].Content, 3)

	results := lastBody.Messages[2]
	assert.Equal(t, RoleUser, results.Role)
	require.Len(t, results.Content, 2)
	assert.Equal(t, "tool_result", results.Content[0].Type)
	assert.Equal(t, "tu_1", results.Content[0].ToolUseID)
	assert.Equal(t, "tu_2", results.Content[1].ToolUseID)
}

func TestNewLLM(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewLLM(cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.OpenAIAPIKey = "k"
	llm, err := NewLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", llm.Name())

	cfg.LLMProvider = "anthropic"
	_, err = NewLLM(cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.AnthropicAPIKey = "k"
	llm, err = NewLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", llm.Name())

	cfg.LLMProvider = "oracle"
	_, err = NewLLM(cfg)
	assert.Error(t, err)
}

func TestRun_EmptyText(t *testing.T) {
	_, err := New(NewOpenAI(http.DefaultClient, "", "k", ""), NewToolbox(&fakeShopper{}, "")).Run(context.Background(), "  ", 3)
	assert.Error(t, err)
}

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords("ニンテンドー スイッチ, 有機EL!! a 有機EL (white)")
	assert.Equal(t, []string{"ニンテンドー", "スイッチ", "有機EL", "white"}, got)

	assert.Equal(t, []string{"PS-5"}, NormalizeKeywords("PS-5"))
	assert.Empty(t, NormalizeKeywords("! ? a"))
}
