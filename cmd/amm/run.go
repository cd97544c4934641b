package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairPool/internal/amm"
	"pairPool/internal/chain"
	"pairPool/internal/config"
	"pairPool/internal/engine"
	"pairPool/internal/metrics"
	"pairPool/internal/state"
	"pairPool/internal/storage"
	"pairPool/internal/storage/postgres"
)

func runEngine(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Ops == "" {
		return fmt.Errorf("ops path is required")
	}
	assetA, err := engine.ParseAddress(cfg.AssetA)
	if err != nil {
		return fmt.Errorf("asset-a: %w", err)
	}
	assetB, err := engine.ParseAddress(cfg.AssetB)
	if err != nil {
		return fmt.Errorf("asset-b: %w", err)
	}

	ops, err := engine.ReadOperations(cfg.Ops)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clock amm.Clock
	var refresher engine.Refresher
	switch cfg.Clock {
	case config.ClockSystem:
		clock = amm.SystemClock()
	case config.ClockReplay:
		clock = &engine.ReplayClock{}
	case config.ClockChain:
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		nodeID, err := chainClient.GetChainID(ctx)
		if err != nil {
			return fmt.Errorf("get chain id: %w", err)
		}
		if cfg.ChainID, err = chain.MatchChainID(cfg.ChainID, nodeID); err != nil {
			return err
		}
		blockClock := chain.NewBlockClock(chainClient)
		clock, refresher = blockClock, blockClock
	}

	exec, err := engine.NewExecutor(engine.ExecutorConfig{
		AssetA: assetA,
		AssetB: assetB,
		Clock:  clock,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Logs, cfg.Events, cfg.Errors)}
	var snapshots state.SnapshotStore
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		sinks = append(sinks, store)
		snapshots = &state.DBSnapshotStore{Store: store, ChainID: cfg.ChainID, Pool: exec.Address().Hex()}
	} else {
		snapshots = &state.FileSnapshotStore{Path: cfg.Snapshot}
	}

	runner := engine.NewRunner(engine.RunConfig{
		ChainID:      cfg.ChainID,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, exec, sinks, logger)
	if cfg.SnapshotEnabled {
		runner.WithSnapshots(snapshots)
	}
	if refresher != nil {
		runner.WithRefresher(refresher)
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		runner.WithMetrics(metrics.NewMetrics(reg))

		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("engine start",
		zap.String("ops", cfg.Ops),
		zap.Int("operations", len(ops)),
		zap.String("pool", exec.Address().Hex()),
		zap.String("asset_a", assetA.Hex()),
		zap.String("asset_b", assetB.Hex()),
		zap.String("clock", cfg.Clock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("snapshot_enabled", cfg.SnapshotEnabled),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	summary, err := runner.Run(ctx, ops)
	if err != nil {
		return err
	}

	meta := exec.Meta()
	logger.Info("engine complete",
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("events", summary.Events),
		zap.Uint64("last_seq", summary.LastSeq),
		zap.String("reserve_a", meta.ReserveA),
		zap.String("reserve_b", meta.ReserveB),
		zap.String("total_supply", meta.TotalSupply),
	)
	return nil
}
