package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lukman83/mercari-shopper/internal/logger"
	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/platform"
)

const (
	ToolSearch = "search_mercari"
	ToolDetail = "fetch_listing_detail"

	toolSearchLimit = 30
)

// Shopper is the retrieval surface the tools call into.
type Shopper interface {
	Search(ctx context.Context, q *models.SearchQuery, opts platform.SearchOpts) ([]models.Listing, error)
	Detail(ctx context.Context, url, engine string) (*models.Listing, error)
}

// Toolbox executes the marketplace tools on behalf of the model.
type Toolbox struct {
	shop   Shopper
	engine string
}

func NewToolbox(shop Shopper, engine string) *Toolbox {
	return &Toolbox{shop: shop, engine: engine}
}

// Definitions returns the tool schemas offered to the model.
func (t *Toolbox) Definitions() []Tool {
	stringArray := func(desc string) map[string]any {
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
	}
	return []Tool{
		{
			Name:        ToolSearch,
			Description: "Search items on Mercari Japan with optional filters and return a list of listings.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keywords":   stringArray("Japanese (preferred) or translated keywords for search."),
					"budget_min": map[string]any{"type": "integer", "description": "Minimum price (JPY)."},
					"budget_max": map[string]any{"type": "integer", "description": "Maximum price (JPY)."},
					"condition":  stringArray("Mercari condition labels in Japanese. Example: ['未使用に近い']"),
					"brand":      stringArray("Optional brand names to match."),
					"color":      stringArray("Optional color keywords to match."),
					"category":   map[string]any{"type": "string", "description": "Optional category name (free text)."},
					"sort": map[string]any{
						"type":        "string",
						"enum":        []string{"relevance", "price_asc", "price_desc", "new"},
						"description": "Sorting strategy (best-effort on client side).",
					},
					"limit": map[string]any{
						"type":        "integer",
						"default":     toolSearchLimit,
						"description": "Number of items to fetch (capped to 100).",
					},
				},
				"required": []string{"keywords"},
			},
		},
		{
			Name:        ToolDetail,
			Description: "Fetch detail information for a single Mercari listing URL.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "Absolute URL of a Mercari item (https://jp.mercari.com/item/...).",
					},
				},
				"required": []string{"url"},
			},
		},
	}
}

type toolOutput struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Dispatch runs one tool call and encodes its outcome for the model. Tool
// failures are reported in the payload, never as a Go error.
func (t *Toolbox) Dispatch(ctx context.Context, name string, args json.RawMessage) string {
	var (
		result any
		err    error
	)
	switch name {
	case ToolSearch:
		result, err = t.search(ctx, args)
	case ToolDetail:
		result, err = t.detail(ctx, args)
	default:
		out, _ := json.Marshal(map[string]string{"error": fmt.Sprintf("Tool '%s' not implemented", name)})
		return string(out)
	}

	out := toolOutput{OK: err == nil, Result: result}
	if err != nil {
		logger.Warn("tool %s failed: %v", name, err)
		out = toolOutput{Error: err.Error()}
	}
	data, mErr := json.Marshal(out)
	if mErr != nil {
		data, _ = json.Marshal(toolOutput{Error: mErr.Error()})
	}
	return string(data)
}

func (t *Toolbox) search(ctx context.Context, args json.RawMessage) ([]models.Listing, error) {
	var in models.QueryInput
	if err := json.Unmarshal(argsOrEmpty(args), &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	in.RawText = "LLM structured"
	if in.Limit == nil {
		limit := toolSearchLimit
		in.Limit = &limit
	}

	q, err := models.NewSearchQuery(in)
	if err != nil {
		return nil, err
	}

	platform.ReportProgress(ctx, "Searching '%s'...", q.KeywordString())
	listings, err := t.shop.Search(ctx, q, platform.SearchOpts{Engine: t.engine, Pages: 1})
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	return listings, nil
}

func (t *Toolbox) detail(ctx context.Context, args json.RawMessage) (*models.Listing, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(argsOrEmpty(args), &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.URL == "" {
		return nil, errors.New("url is required")
	}

	platform.ReportProgress(ctx, "Fetching %s", in.URL)
	return t.shop.Detail(ctx, in.URL, t.engine)
}
