package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairPool/internal/chain"
	"pairPool/internal/config"
	"pairPool/internal/dex"
	"pairPool/internal/engine"
	"pairPool/internal/model"
	"pairPool/internal/state"
	"pairPool/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" && cfg.Snapshot == "" {
		return fmt.Errorf("rpc url or snapshot is required")
	}
	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	pools, err := engine.ParseAddresses(cfg.Pools)
	if err != nil {
		return err
	}
	allowed := make(map[string]struct{}, len(pools))
	for _, pool := range pools {
		allowed[strings.ToLower(pool.Hex())] = struct{}{}
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

	poolCache := dex.NewPoolMetaCache()
	if cfg.Snapshot != "" {
		if err := seedPoolMeta(ctx, poolCache, cfg.Snapshot); err != nil {
			return err
		}
	}

	decoder, err := dex.NewPoolDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return err
	}

	decodeCtx := dex.DecodeContext{
		Context:         ctx,
		Chain:           chainClient,
		PoolMetaCache:   poolCache,
		TokenMetaCache:  dex.NewTokenMetaCache(),
		Logger:          logger,
		IncludeLiveMeta: cfg.IncludeLiveMeta,
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.NewJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.String("snapshot", cfg.Snapshot),
		zap.Int("pools", len(pools)),
		zap.Bool("rpc", chainClient != nil),
		zap.Bool("include_live_meta", cfg.IncludeLiveMeta),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, decoded, skipped, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			writeDecodeError(errWriter, model.NewDecodeError(model.DecodeStageParse, model.LogRecord{}, err))
			continue
		}
		if len(record.Topics) == 0 {
			failed++
			writeDecodeError(errWriter, model.NewDecodeError(model.DecodeStageTopic, record, fmt.Errorf("missing topic0")))
			continue
		}

		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(record.Address)]; !ok {
				skipped++
				continue
			}
		}
		if !decoder.CanDecode(record.Topics[0]) {
			skipped++
			continue
		}

		if record.Timestamp == 0 && chainClient != nil {
			ts, err := chainClient.BlockTimestamp(ctx, record.BlockNumber)
			if err != nil {
				failed++
				writeDecodeError(errWriter, model.NewDecodeError(model.DecodeStageTimestamp, record, err))
				continue
			}
			record.Timestamp = ts
		}

		event, err := decoder.Decode(record, decodeCtx)
		if err != nil {
			failed++
			writeDecodeError(errWriter, model.NewDecodeError(model.DecodeStageDecode, record, err))
			continue
		}

		if err := outWriter.Write(event); err != nil {
			return err
		}
		decoded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

// seedPoolMeta registers the pair of a snapshotted pool so its logs decode
// without RPC.
func seedPoolMeta(ctx context.Context, cache *dex.PoolMetaCache, path string) error {
	store := &state.FileSnapshotStore{Path: path}
	snap, ok, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return fmt.Errorf("snapshot %s not found", path)
	}
	if !common.IsHexAddress(snap.Address) {
		return fmt.Errorf("snapshot pool address invalid: %s", snap.Address)
	}
	cache.Set(common.HexToAddress(snap.Address), model.PoolMeta{AssetA: snap.AssetA, AssetB: snap.AssetB})
	return nil
}

func writeDecodeError(writer *storage.JSONLWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
