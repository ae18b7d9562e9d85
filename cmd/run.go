package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"seqbench/benchmark"
	"seqbench/config"
	"seqbench/progress"
	"seqbench/report"
	"seqbench/storage"
)

var (
	runVariant  string
	runPosition string
	runSize     int
	runBound    int
	runTrials   int
	runSeed     uint64
	runStore    string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run one benchmark configuration in the foreground",
		RunE:  runBenchmark,
	}
)

func init() {
	f := runCmd.Flags()
	f.StringVar(&runVariant, "variant", "array", "Container variant: array or linked")
	f.StringVar(&runPosition, "position", "end", "Insert/delete/retrieve position: beginning, middle or end")
	f.IntVar(&runSize, "size", 10000, "Number of generated elements")
	f.IntVar(&runBound, "bound", 1000000, "Exclusive upper bound of generated values")
	f.IntVar(&runTrials, "trials", 10, "Number of trials")
	f.Uint64Var(&runSeed, "seed", 0, "Seed for reproducible values (0 draws a fresh seed)")
	f.StringVar(&runStore, "store", "", "Storage backend override: memory, badger or oci")
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	variant, err := benchmark.ParseVariant(runVariant)
	if err != nil {
		return err
	}
	position, err := benchmark.ParsePosition(runPosition)
	if err != nil {
		return err
	}
	cfg := benchmark.Configuration{
		Variant:  variant,
		Position: position,
		Size:     runSize,
		Bound:    runBound,
		Trials:   runTrials,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	srvCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if runStore != "" {
		srvCfg.Storage.Backend = runStore
	}
	logger := newLogger(os.Stderr, logLevel, "text")

	ctx := cmd.Context()
	store, err := storage.Open(ctx, srvCfg.Storage, logger, nil)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", srvCfg.Storage.Backend, err)
	}
	defer store.Close()

	bar := progress.NewProgressBar(int64(cfg.Trials), os.Stderr).SetCaption(cfg.Key().String())
	runner := benchmark.Runner{
		Logger:  logger,
		Seed:    runSeed,
		OnTrial: bar.ObserveTrial,
	}

	started := time.Now()
	measurements, err := runner.Run(ctx, cfg)
	bar.Finish()
	if err != nil {
		return err
	}

	rec := &benchmark.ExecutionRecord{
		ID:           uuid.NewString(),
		Key:          cfg.Key(),
		Config:       cfg,
		Measurements: measurements,
		StartedAt:    started.UTC(),
		FinishedAt:   time.Now().UTC(),
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := store.Save(saveCtx, rec); err != nil {
		logger.Error("failed to persist execution record",
			slog.String("key", rec.Key.String()),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("execution record stored",
			slog.String("backend", srvCfg.Storage.Backend),
			slog.String("run_id", rec.ID),
		)
	}

	return report.DisplayResults(cmd.OutOrStdout(), *rec)
}
