package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lukman83/mercari-shopper/internal/agent"
	"github.com/lukman83/mercari-shopper/internal/logger"
	"github.com/lukman83/mercari-shopper/internal/mercari"
	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/service"
)

type handler struct {
	shop  Shopper
	agent Asker
}

type searchRequest struct {
	Query   models.QueryInput `json:"query"`
	TopK    *int              `json:"top_k"`
	Engine  string            `json:"engine"`
	Pages   int               `json:"pages"`
	Details int               `json:"details"`
}

type detailRequest struct {
	URL    string `json:"url"`
	Engine string `json:"engine"`
}

type askRequest struct {
	Text     string `json:"text"`
	MaxSteps int    `json:"max_steps"`
}

// search handles POST /search.
func (h *handler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	q, err := models.NewSearchQuery(req.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	topK := service.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	resp, err := h.shop.Recommend(c.Request.Context(), service.RecommendRequest{
		Query:   q,
		TopK:    topK,
		Engine:  engineName(req.Engine),
		Pages:   req.Pages,
		Details: req.Details,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// detail handles POST /detail.
func (h *handler) detail(c *gin.Context) {
	var req detailRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: url is required"})
		return
	}

	listing, err := h.shop.Detail(c.Request.Context(), req.URL, engineName(req.Engine))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ask handles POST /ask.
func (h *handler) ask(c *gin.Context) {
	if h.agent == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no LLM provider configured"})
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: text is required"})
		return
	}

	conv, err := h.agent.Run(c.Request.Context(), req.Text, req.MaxSteps)
	if err != nil {
		logger.Warn("ask failed [%s]: %v", c.GetString(ctxRequestID), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": agent.FinalAnswer(conv), "turns": len(conv)})
}

func (h *handler) fail(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, models.ErrInvalidQuery),
		errors.Is(err, mercari.ErrNotItemURL),
		errors.Is(err, mercari.ErrUnknownEngine):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNoResults):
		status = http.StatusNotFound
	default:
		logger.Warn("%s %s failed [%s]: %v", c.Request.Method, c.Request.URL.Path, c.GetString(ctxRequestID), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// engineName accepts "playwright" and "browser" as aliases of the headless engine.
func engineName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "playwright" || s == "browser" {
		return mercari.EngineHeadless
	}
	return s
}
