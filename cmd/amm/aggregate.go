package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairPool/internal/aggregate"
	"pairPool/internal/chain"
	"pairPool/internal/config"
	"pairPool/internal/state"
	"pairPool/internal/storage/postgres"
)

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAggregate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	windowDuration, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	if windowDuration <= 0 {
		return fmt.Errorf("window must be positive")
	}
	windowSeconds := uint64(windowDuration.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("window must be at least 1s")
	}

	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}

	decimals, err := parseDecimals(cfg.Decimals)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chainClient *chain.Client
	if cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var stateStore state.ProgressStore
	if cfg.StateFile != "" {
		stateStore = &state.FileProgressStore{Path: cfg.StateFile}
	} else {
		stateStore = &state.DBProgressStore{Store: store, Name: fmt.Sprintf("aggregator:%d", windowSeconds)}
	}

	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
		StateStore:    stateStore,
		Decimals:      decimals,
	}, store, chainClient, logger)

	logger.Info("aggregate start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", recomputeFrom),
		zap.Int("decimals", len(decimals)),
		zap.Bool("rpc", chainClient != nil),
	)

	return agg.Run(ctx, cfg.Input)
}

func parseDecimals(input map[string]string) (map[common.Address]uint8, error) {
	out := make(map[common.Address]uint8, len(input))
	for token, value := range input {
		if !common.IsHexAddress(token) {
			return nil, fmt.Errorf("decimals: invalid token address %s", token)
		}
		d, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("decimals for %s: %w", token, err)
		}
		out[common.HexToAddress(token)] = uint8(d)
	}
	return out, nil
}
