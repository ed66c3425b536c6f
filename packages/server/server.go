// Package server exposes pipeline runs over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"pulse/packages/config"
	"pulse/packages/crawler"
	"pulse/packages/discovery"
	"pulse/packages/domain"
	"pulse/packages/metrics"
	"pulse/packages/pipeline"

	"github.com/gin-gonic/gin"
)

// Runner is the slice of pipeline.Pipeline the API needs.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (*domain.Report, error)
	Publish(ctx context.Context, report *domain.Report) error
	Catalog() config.Catalog
}

type Server struct {
	runner Runner
	mu     sync.Mutex // one run at a time
}

func New(runner Runner) *Server {
	return &Server{runner: runner}
}

// NewRouter constructs a Gin engine with registered routes.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/sources", s.handleSources)
	r.POST("/api/runs", s.handleRun)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSources(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Catalog())
}

func (s *Server) handleRun(c *gin.Context) {
	var opts pipeline.Options
	if c.Request.ContentLength != 0 {
		// An empty chunked body binds to io.EOF and means default options.
		if err := c.ShouldBindJSON(&opts); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if opts.Category == "" {
		opts.Category = config.AllCategories
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := c.Request.Context()
	report, err := s.runner.Run(ctx, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if isConfigError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if err := s.runner.Publish(context.WithoutCancel(ctx), report); err != nil {
		slog.Warn("Report delivered with sink failures", "error", err)
	}
	c.JSON(http.StatusOK, report)
}

func isConfigError(err error) bool {
	return errors.Is(err, config.ErrUnknownCategory) ||
		errors.Is(err, pipeline.ErrNoSources) ||
		errors.Is(err, discovery.ErrNoBlogSources) ||
		errors.Is(err, crawler.ErrMissingCredential)
}
