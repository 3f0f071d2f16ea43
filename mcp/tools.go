package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/mercari-shopper/internal/mercari"
	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/platform"
	"github.com/lukman83/mercari-shopper/internal/service"
)

// toolArgs is the union of every tool's arguments; each handler reads the
// fields it needs.
type toolArgs struct {
	models.QueryInput
	Platform string `json:"platform"`
	Engine   string `json:"engine"`
	Pages    int    `json:"pages"`
	TopK     *int   `json:"top_k"`
	Details  int    `json:"details"`
	URL      string `json:"url"`
}

func registerTools(s *server.MCPServer) {
	s.AddTool(searchTool(), handleSearchMercari)
	s.AddTool(detailTool(), handleFetchListingDetail)
	s.AddTool(recommendTool(), handleRecommendListings)
}

func queryOptions() []mcp.ToolOption {
	stringItems := mcp.Items(map[string]any{"type": "string"})
	return []mcp.ToolOption{
		mcp.WithArray("keywords",
			mcp.Required(),
			mcp.Description("Search keywords, Japanese preferred"),
			stringItems,
		),
		mcp.WithNumber("budget_min", mcp.Description("Minimum price in JPY")),
		mcp.WithNumber("budget_max", mcp.Description("Maximum price in JPY")),
		mcp.WithArray("condition",
			mcp.Description("Mercari condition labels, e.g. 未使用に近い"),
			mcp.Items(map[string]any{"type": "string", "enum": models.ConditionWhitelist()}),
		),
		mcp.WithArray("brand", mcp.Description("Brand names that must all appear"), stringItems),
		mcp.WithArray("color", mcp.Description("Colors that must all appear"), stringItems),
		mcp.WithString("category", mcp.Description("Free-text category")),
		mcp.WithString("sort",
			mcp.Description("Client-side ordering"),
			mcp.Enum(string(models.SortRelevance), string(models.SortPriceAsc), string(models.SortPriceDesc), string(models.SortNew)),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum listings returned (default: 30, max: 100)")),
		mcp.WithNumber("pages", mcp.Description("Result pages to fetch (default: 1)")),
		mcp.WithString("engine", mcp.Description("Retrieval engine: http or headless (default: configured engine)")),
		mcp.WithString("platform", mcp.Description("Target platform (default: mercari)")),
	}
}

func searchTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Search listings on Mercari Japan with optional budget, condition, brand and color filters"),
	}, queryOptions()...)
	return mcp.NewTool("search_mercari", opts...)
}

func detailTool() mcp.Tool {
	return mcp.NewTool("fetch_listing_detail",
		mcp.WithDescription("Fetch seller, description and condition details for one Mercari item URL"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute item URL (https://jp.mercari.com/item/...)"),
		),
		mcp.WithString("engine", mcp.Description("Retrieval engine: http or headless")),
		mcp.WithString("platform", mcp.Description("Target platform (default: mercari)")),
	)
}

func recommendTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Search Mercari Japan and return the best listings with a score and the reasons behind it"),
		mcp.WithNumber("top_k", mcp.Description("Number of recommendations (default: 3)")),
		mcp.WithNumber("details", mcp.Description("Fetch item pages for this many candidates before ranking (default: 0)")),
	}, queryOptions()...)
	return mcp.NewTool("recommend_listings", opts...)
}

func decodeArgs(request mcp.CallToolRequest) (toolArgs, error) {
	var args toolArgs
	raw, err := json.Marshal(request.GetArguments())
	if err != nil {
		return args, err
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, fmt.Errorf("invalid arguments: %w", err)
	}
	return args, nil
}

func shopperFor(name string) (*service.Shopper, error) {
	if name == "" {
		name = mercari.Platform
	}
	scraper, err := platform.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(platform.List(), ", "))
	}
	return service.New(scraper), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleSearchMercari(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decodeArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q, err := models.NewSearchQuery(args.QueryInput)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	shop, err := shopperFor(args.Platform)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("platform error: %v", err)), nil
	}

	listings, err := shop.Search(ctx, q, platform.SearchOpts{Engine: args.Engine, Pages: args.Pages})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	return jsonResult(listings)
}

func handleFetchListingDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	shop, err := shopperFor(request.GetString("platform", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("platform error: %v", err)), nil
	}

	listing, err := shop.Detail(ctx, url, request.GetString("engine", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detail error: %v", err)), nil
	}
	return jsonResult(listing)
}

func handleRecommendListings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decodeArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q, err := models.NewSearchQuery(args.QueryInput)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	shop, err := shopperFor(args.Platform)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("platform error: %v", err)), nil
	}
	topK := service.DefaultTopK
	if args.TopK != nil {
		topK = *args.TopK
	}

	resp, err := shop.Recommend(ctx, service.RecommendRequest{
		Query:   q,
		TopK:    topK,
		Engine:  args.Engine,
		Pages:   args.Pages,
		Details: args.Details,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recommend error: %v", err)), nil
	}
	return jsonResult(resp)
}
