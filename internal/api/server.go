// Package api exposes bias results and operator actions over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"BiasSentinel/internal/analyzer"
	"BiasSentinel/internal/verifier"
	"BiasSentinel/internal/weights"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Server is the HTTP surface.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	addr       string
	runner     *analyzer.Runner
	retrainer  *analyzer.Retrainer
	verifier   *verifier.Verifier
	weights    *weights.Manager
	logger     zerolog.Logger
}

// NewServer creates a new API server listening on addr.
func NewServer(addr string, runner *analyzer.Runner, rt *analyzer.Retrainer, v *verifier.Verifier, wm *weights.Manager, logger zerolog.Logger) *Server {
	router := gin.New()
	s := &Server{
		router:    router,
		addr:      addr,
		runner:    runner,
		retrainer: rt,
		verifier:  v,
		weights:   wm,
		logger:    logger.With().Str("component", "api").Logger(),
	}
	router.Use(s.requestLogger())
	router.Use(gin.Recovery())
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/bias", s.handleListBias)
		api.GET("/bias/:symbol", s.handleGetBias)
		api.POST("/analyze/:symbol", s.handleAnalyze)
		api.GET("/weights", s.handleGetWeights)
		api.POST("/retrain", s.handleRetrain)
		api.POST("/verify", s.handleVerify)
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called. After Shutdown it returns nil
// immediately.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "healthy",
		"symbols":            len(s.runner.Latest().All()),
		"weights_updated_at": s.weights.UpdatedAt(),
	})
}
