package main

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairPool/internal/amm"
	"pairPool/internal/asset"
	"pairPool/internal/config"
	"pairPool/internal/engine"
	"pairPool/internal/state"
	"pairPool/internal/storage/postgres"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, exec, err := loadPool(cmd)
	if err != nil {
		return err
	}
	tokenIn, err := engine.ParseAddress(cfg.TokenIn)
	if err != nil {
		return fmt.Errorf("token-in: %w", err)
	}
	amountIn, err := engine.ParseAmount(cfg.AmountIn)
	if err != nil {
		return err
	}

	var out *uint256.Int
	exec.View(func(pool *amm.Pool, _ *asset.Ledger) {
		out, err = pool.Quote(tokenIn, amountIn)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.Dec())
	return nil
}

func runPrice(cmd *cobra.Command, _ []string) error {
	cfg, exec, err := loadPool(cmd)
	if err != nil {
		return err
	}
	base, err := engine.ParseAddress(cfg.Base)
	if err != nil {
		return fmt.Errorf("base: %w", err)
	}
	quote, err := engine.ParseAddress(cfg.Quote)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	var price *uint256.Int
	exec.View(func(pool *amm.Pool, _ *asset.Ledger) {
		price, err = pool.SpotPrice(base, quote)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), price.Dec())
	return nil
}

// loadPool rebuilds the pool from its latest snapshot.
func loadPool(cmd *cobra.Command) (config.QuoteConfig, *engine.Executor, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return cfg, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	defer logger.Sync()

	assetA, err := engine.ParseAddress(cfg.AssetA)
	if err != nil {
		return cfg, nil, fmt.Errorf("asset-a: %w", err)
	}
	assetB, err := engine.ParseAddress(cfg.AssetB)
	if err != nil {
		return cfg, nil, fmt.Errorf("asset-b: %w", err)
	}
	exec, err := engine.NewExecutor(engine.ExecutorConfig{AssetA: assetA, AssetB: assetB, Logger: logger})
	if err != nil {
		return cfg, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var store state.SnapshotStore = &state.FileSnapshotStore{Path: cfg.Snapshot}
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return cfg, nil, fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		store = &state.DBSnapshotStore{Store: pg, ChainID: cfg.ChainID, Pool: exec.Address().Hex()}
	}

	snap, ok, err := store.Load(ctx)
	if err != nil {
		return cfg, nil, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return cfg, nil, fmt.Errorf("no snapshot for pool %s", exec.Address().Hex())
	}
	if err := exec.Restore(snap); err != nil {
		return cfg, nil, err
	}
	logger.Debug("pool loaded", zap.String("pool", snap.Address), zap.Uint64("last_seq", snap.LastSeq))
	return cfg, exec, nil
}
