package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"seqbench/benchmark"
	"seqbench/config"
	"seqbench/metrics"
	"seqbench/server"
	"seqbench/storage"
)

const shutdownTimeout = 30 * time.Second

var (
	serveListen string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Accept benchmark runs over HTTP",
		RunE:  serve,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address, overrides the configuration file")
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if err := SetMaxResources(logger); err != nil {
		logger.Warn("could not raise resource limits", slog.String("error", err.Error()))
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ctx := cmd.Context()
	store, err := storage.Open(ctx, cfg.Storage, logger, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	pool := benchmark.NewPool(benchmark.PoolConfig{
		Workers:    cfg.Pool.Workers,
		QueueSize:  cfg.Pool.QueueSize,
		RateLimit:  cfg.Pool.RateLimit,
		Burst:      cfg.Pool.Burst,
		RunTimeout: cfg.Pool.RunTimeout,
	}, logger, m)
	orchestrator := benchmark.NewOrchestrator(store, pool, logger, m, benchmark.WithMaxSize(cfg.Pool.MaxSize))

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: server.NewRouter(server.Deps{
			Orchestrator: orchestrator,
			Finder:       store,
			Gatherer:     reg,
			Logger:       logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			slog.String("addr", cfg.Listen),
			slog.String("storage", cfg.Storage.Backend),
			slog.Int("workers", cfg.Pool.Workers),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpErr := srv.Shutdown(shutdownCtx)
		poolErr := pool.Shutdown(shutdownCtx)
		if poolErr != nil {
			logger.Warn("runs cancelled during shutdown", slog.String("error", poolErr.Error()))
		}
		return httpErr
	})
	return g.Wait()
}
