// Package server exposes the benchmark service over HTTP.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seqbench/benchmark"
	"seqbench/storage"
)

// Deps are the collaborators the routes need. Routes backed by a nil
// Finder or Gatherer are not registered.
type Deps struct {
	Orchestrator *benchmark.Orchestrator
	Finder       storage.Finder
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(d.Logger))
	SetupRoutes(router, d)
	return router
}

func SetupRoutes(router *gin.Engine, d Deps) {
	router.GET("/health", HealthCheck)
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/benchmarks", HandleSubmitBenchmark(d.Orchestrator, d.Logger))
		v1.GET("/benchmarks/:id", HandleGetBenchmark(d.Orchestrator))
		if d.Finder != nil {
			v1.GET("/executions/:variant/:position", HandleListExecutions(d.Finder, d.Logger))
		}
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
