package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/auctionhouse/services/indexer/cache"
	"example.com/auctionhouse/services/indexer/config"
	"example.com/auctionhouse/services/indexer/tracing"
)

// Server exposes operational read endpoints over the derived entities.
// The end-client query surface lives elsewhere; this API exists for
// dashboards and on-call visibility.
type Server struct {
	cfg        config.Config
	router     *gin.Engine
	httpServer *http.Server
	db         *gorm.DB
	cache      cache.CacheClient
}

// NewServer creates a new API server.
func NewServer(cfg config.Config, db *gorm.DB, cacheClient cache.CacheClient, tracer *tracing.Tracer) *Server {
	server := &Server{
		cfg:    cfg,
		router: gin.New(),
		db:     db,
		cache:  cacheClient,
	}

	server.setupMiddleware(tracer)
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware(tracer *tracing.Tracer) {
	s.router.Use(RequestIDMiddleware())
	if s.cfg.Server.CorsEnabled {
		s.router.Use(CORSMiddleware())
	}
	s.router.Use(gin.Recovery())
	s.router.Use(LoggingMiddleware())

	if tracer != nil && tracer.Application() != nil {
		s.router.Use(nrgin.Middleware(tracer.Application()))
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/stats", s.getStats)
		v1.GET("/auctions/:lot", s.getAuction)
		v1.GET("/auctions/:lot/log", s.getAuctionLog)
		v1.GET("/users/:address", s.getUser)
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Address,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.Timeout,
		WriteTimeout: s.cfg.Server.Timeout,
	}

	log.Info().Msgf("HTTP server starting on %s", s.cfg.Server.Address)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
