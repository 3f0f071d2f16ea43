// Package api exposes the shopper over a small JSON REST API.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lukman83/mercari-shopper/internal/agent"
	"github.com/lukman83/mercari-shopper/internal/models"
	"github.com/lukman83/mercari-shopper/internal/service"
)

// Shopper is what the search and detail endpoints need.
type Shopper interface {
	Recommend(ctx context.Context, req service.RecommendRequest) (*models.RecommendationResponse, error)
	Detail(ctx context.Context, url, engine string) (*models.Listing, error)
}

// Asker answers free-text requests through the tool-calling agent.
type Asker interface {
	Run(ctx context.Context, rawText string, maxSteps int) ([]agent.Message, error)
}

// Options configures the router. Agent may be nil, in which case /ask
// answers 503.
type Options struct {
	Shopper        Shopper
	Agent          Asker
	APIKey         string
	AllowedOrigins []string
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLog())

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", headerRequestID}
	corsConfig.ExposeHeaders = []string{headerRequestID}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handler{shop: opts.Shopper, agent: opts.Agent}
	protected := router.Group("/")
	if opts.APIKey != "" {
		protected.Use(bearerAuth(opts.APIKey))
	}
	protected.POST("/search", h.search)
	protected.POST("/detail", h.detail)
	protected.POST("/ask", h.ask)

	return router
}

// Serve runs h on addr until the server fails.
func Serve(addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Mercari shopper API listening on %s", addr)
	return srv.ListenAndServe()
}
