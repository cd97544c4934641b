package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pairPool/internal/config"
)

const decodeLong = `Decode raw pool logs into typed events.

Events carry pool reserves and supply only with --rpc and --include-live-meta.
A snapshot supplies the pair alone. Without --rpc, aggregate rejects events
that carry no reserves; aggregate the typed events written by run instead.`

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Two-asset constant-product pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Replay an operation file against a pool",
		RunE:  runEngine,
	}

	runCmd.Flags().String("ops", "", "input operations JSONL")
	runCmd.Flags().String("asset-a", "", "first pool asset address")
	runCmd.Flags().String("asset-b", "", "second pool asset address")
	runCmd.Flags().Uint64("chain-id", 0, "chain id stamped on emitted logs (default 31337; the node's with --clock chain)")
	runCmd.Flags().Uint64("batch-size", 500, "operations per batch")
	runCmd.Flags().String("logs", "./data/logs.jsonl", "output log records JSONL (empty disables)")
	runCmd.Flags().String("events", "./data/typed_events.jsonl", "output typed events JSONL (empty disables)")
	runCmd.Flags().String("errors", "./data/op_errors.jsonl", "output rejected operations JSONL (empty disables)")
	runCmd.Flags().String("snapshot", "./data/snapshot.json", "pool snapshot file path")
	runCmd.Flags().Bool("snapshot-enabled", true, "restore from and checkpoint to the snapshot")
	runCmd.Flags().String("clock", config.ClockReplay, "deadline clock (system, chain, replay)")
	runCmd.Flags().String("rpc", "", "RPC URL for the chain clock")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and snapshots")
	runCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts for writes")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the output of an exact-input swap",
		RunE:  runQuote,
	}
	addQueryFlags(quoteCmd)
	quoteCmd.Flags().String("token-in", "", "asset sold")
	quoteCmd.Flags().String("amount-in", "", "amount sold in base units")

	root.AddCommand(quoteCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Print the spot price of base in quote, scaled by 1e18",
		RunE:  runPrice,
	}
	addQueryFlags(priceCmd)
	priceCmd.Flags().String("base", "", "asset being priced")
	priceCmd.Flags().String("quote", "", "asset the price is expressed in")

	root.AddCommand(priceCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw pool logs into typed events",
		Long:  decodeLong,
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "RPC URL for pool metadata")
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("snapshot", "", "pool snapshot file used as metadata source")
	decodeCmd.Flags().StringSlice("pool", nil, "only decode logs of these pools (comma-separated)")
	decodeCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	decodeCmd.Flags().Bool("include-live-meta", false, "attach reserves read at the log's block (requires archive RPC)")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate typed events into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("rpc", "", "optional RPC URL for token decimals and TVL")
	aggregateCmd.Flags().String("in", "./data/typed_events.jsonl", "input typed events JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("decimals", "", "token decimals (comma-separated address=decimals)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("snapshot", "./data/snapshot.json", "pool snapshot file path")
	cmd.Flags().String("pg-dsn", "", "read the snapshot from Postgres instead")
	cmd.Flags().Uint64("chain-id", 31337, "chain id of the snapshot")
	cmd.Flags().String("asset-a", "", "first pool asset address")
	cmd.Flags().String("asset-b", "", "second pool asset address")
	cmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
