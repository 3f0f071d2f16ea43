package mercari

import (
	"context"
	"fmt"

	"github.com/lukman83/mercari-shopper/internal/httputil"
	"github.com/lukman83/mercari-shopper/internal/platform"
)

// StaticPageStrategy retrieves server-rendered HTML over plain HTTP.
type StaticPageStrategy struct {
	fetcher *httputil.Fetcher
}

func NewStaticPageStrategy(fetcher *httputil.Fetcher) *StaticPageStrategy {
	return &StaticPageStrategy{fetcher: fetcher}
}

func (s *StaticPageStrategy) Name() string { return EngineHTTP }

func (s *StaticPageStrategy) Execute(ctx context.Context, req platform.Request) (*platform.Result, error) {
	switch req.Type {
	case platform.SearchPageRequest, platform.DetailPageRequest:
	default:
		return nil, fmt.Errorf("%s strategy does not support request type %s", s.Name(), req.Type)
	}

	body, err := s.fetcher.Fetch(ctx, req.URL, nil)
	if err != nil {
		return nil, err
	}
	return &platform.Result{
		HTML:     string(body),
		URL:      req.URL,
		Strategy: s.Name(),
	}, nil
}
