// Package config loads command settings from defaults, an optional config
// file, AMM_* environment variables and flags, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Clock sources for deadline checks.
const (
	ClockSystem = "system"
	ClockChain  = "chain"
	ClockReplay = "replay"
)

// DefaultChainID is stamped on logs when no chain id is configured and the
// clock is not read from a node.
const DefaultChainID uint64 = 31337

// Config holds settings of the run command.
type Config struct {
	Ops             string
	AssetA          string
	AssetB          string
	ChainID         uint64
	BatchSize       uint64
	Logs            string
	Events          string
	Errors          string
	Snapshot        string
	SnapshotEnabled bool
	Clock           string
	RPCURL          string
	PGDSN           string
	MetricsAddr     string
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"chain-id":         uint64(0),
		"batch-size":       uint64(500),
		"logs":             "./data/logs.jsonl",
		"events":           "./data/typed_events.jsonl",
		"errors":           "./data/op_errors.jsonl",
		"snapshot":         "./data/snapshot.json",
		"snapshot-enabled": true,
		"clock":            ClockReplay,
		"max-retries":      5,
		"retry-backoff":    500 * time.Millisecond,
		"log-level":        "info",
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Ops:             v.GetString("ops"),
		AssetA:          v.GetString("asset-a"),
		AssetB:          v.GetString("asset-b"),
		ChainID:         v.GetUint64("chain-id"),
		BatchSize:       v.GetUint64("batch-size"),
		Logs:            v.GetString("logs"),
		Events:          v.GetString("events"),
		Errors:          v.GetString("errors"),
		Snapshot:        v.GetString("snapshot"),
		SnapshotEnabled: v.GetBool("snapshot-enabled"),
		Clock:           strings.ToLower(v.GetString("clock")),
		RPCURL:          v.GetString("rpc"),
		PGDSN:           v.GetString("pg-dsn"),
		MetricsAddr:     v.GetString("metrics-addr"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	switch cfg.Clock {
	case ClockSystem, ClockReplay:
		if cfg.ChainID == 0 {
			cfg.ChainID = DefaultChainID
		}
	case ClockChain:
		// zero adopts the node's chain id
		if cfg.RPCURL == "" {
			return Config{}, fmt.Errorf("clock %q requires rpc", cfg.Clock)
		}
	default:
		return Config{}, fmt.Errorf("unknown clock %q", cfg.Clock)
	}

	return cfg, nil
}

// newViper builds a viper instance with defaults, env binding, flags and
// the config file. A missing ./config.* is not an error; a missing explicit
// file is.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
