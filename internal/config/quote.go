package config

import (
	"github.com/spf13/pflag"
)

// QuoteConfig holds settings of the read-only quote and price commands.
type QuoteConfig struct {
	Snapshot string
	PGDSN    string
	ChainID  uint64
	AssetA   string
	AssetB   string
	TokenIn  string
	AmountIn string
	Base     string
	Quote    string
	LogLevel string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"snapshot":  "./data/snapshot.json",
		"chain-id":  uint64(31337),
		"log-level": "warn",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		Snapshot: v.GetString("snapshot"),
		PGDSN:    v.GetString("pg-dsn"),
		ChainID:  v.GetUint64("chain-id"),
		AssetA:   v.GetString("asset-a"),
		AssetB:   v.GetString("asset-b"),
		TokenIn:  v.GetString("token-in"),
		AmountIn: v.GetString("amount-in"),
		Base:     v.GetString("base"),
		Quote:    v.GetString("quote"),
		LogLevel: v.GetString("log-level"),
	}, nil
}
