package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func runFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("ops", "", "")
	flags.Uint64("batch-size", 0, "")
	flags.String("clock", "", "")
	flags.String("rpc", "", "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadDefaults(t *testing.T) {
	require := require.New(t)
	cfg, err := Load("", runFlags(t, "--ops", "ops.jsonl"))
	require.NoError(err)
	require.Equal("ops.jsonl", cfg.Ops)
	require.Equal(uint64(500), cfg.BatchSize)
	require.Equal(ClockReplay, cfg.Clock)
	require.Equal(DefaultChainID, cfg.ChainID)
	require.True(cfg.SnapshotEnabled)
	require.Equal(500*time.Millisecond, cfg.RetryBackoff)
}

func TestLoadPrecedence(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "amm.yaml")
	require.NoError(os.WriteFile(path, []byte("batch-size: 7\nclock: system\nasset-a: \"0xa\"\n"), 0o644))

	cfg, err := Load(path, runFlags(t))
	require.NoError(err)
	require.Equal(uint64(7), cfg.BatchSize)
	require.Equal(ClockSystem, cfg.Clock)
	require.Equal("0xa", cfg.AssetA)

	t.Setenv("AMM_BATCH_SIZE", "42")
	cfg, err = Load(path, runFlags(t))
	require.NoError(err)
	require.Equal(uint64(42), cfg.BatchSize)

	cfg, err = Load(path, runFlags(t, "--batch-size", "9"))
	require.NoError(err)
	require.Equal(uint64(9), cfg.BatchSize)
}

func TestLoadClockValidation(t *testing.T) {
	_, err := Load("", runFlags(t, "--clock", "chain"))
	require.ErrorContains(t, err, "requires rpc")

	_, err = Load("", runFlags(t, "--clock", "sundial"))
	require.ErrorContains(t, err, "unknown clock")

	cfg, err := Load("", runFlags(t, "--clock", "CHAIN", "--rpc", "http://localhost:8545"))
	require.NoError(t, err)
	require.Equal(t, ClockChain, cfg.Clock)
	require.Zero(t, cfg.ChainID)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func TestLoadAggregateDecimals(t *testing.T) {
	require := require.New(t)
	flags := pflag.NewFlagSet("aggregate", pflag.ContinueOnError)
	flags.String("decimals", "", "")
	flags.String("window", "", "")
	require.NoError(flags.Parse([]string{"--decimals", "0xa=18, 0xb=6,bad", "--window", "1h"}))

	cfg, err := LoadAggregate("", flags)
	require.NoError(err)
	require.Equal(map[string]string{"0xa": "18", "0xb": "6"}, cfg.Decimals)
	require.Equal("1h", cfg.Window)
	require.Equal(1000, cfg.BatchSize)
}

func TestLoadDecodePools(t *testing.T) {
	flags := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flags.StringSlice("pool", nil, "")
	require.NoError(t, flags.Parse([]string{"--pool", "0x1,0x2", "--pool", " 0x3 "}))

	cfg, err := LoadDecode("", flags)
	require.NoError(t, err)
	require.Equal(t, []string{"0x1", "0x2", "0x3"}, cfg.Pools)
}

func TestParseTimestamp(t *testing.T) {
	require := require.New(t)
	got, err := ParseTimestamp("1700000000")
	require.NoError(err)
	require.Equal(uint64(1_700_000_000), got)

	got, err = ParseTimestamp("2023-11-14T22:13:20Z")
	require.NoError(err)
	require.Equal(uint64(1_700_000_000), got)

	got, err = ParseTimestamp("")
	require.NoError(err)
	require.Zero(got)

	_, err = ParseTimestamp("yesterday")
	require.Error(err)
}
