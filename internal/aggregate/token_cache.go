package aggregate

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"pairPool/internal/chain"
	"pairPool/internal/dex"
	"pairPool/internal/model"
)

// tokenResolver answers token metadata from configured decimals first, then
// from the chain. Without a chain client unknown tokens resolve with
// TokenSourceNone and amounts stay in base units.
type tokenResolver struct {
	mu    sync.Mutex
	known map[common.Address]model.TokenMeta
	chain *chain.Client
}

func newTokenResolver(chainClient *chain.Client, preset map[common.Address]uint8) *tokenResolver {
	known := make(map[common.Address]model.TokenMeta, len(preset))
	for token, decimals := range preset {
		known[token] = model.TokenMeta{Address: token.Hex(), Decimals: decimals, Source: model.TokenSourcePreset}
	}
	return &tokenResolver{known: known, chain: chainClient}
}

func (r *tokenResolver) Resolve(ctx context.Context, token string) (model.TokenMeta, error) {
	if !common.IsHexAddress(token) {
		return model.TokenMeta{Source: model.TokenSourceNone}, fmt.Errorf("invalid token address: %s", token)
	}
	addr := common.HexToAddress(token)

	r.mu.Lock()
	meta, ok := r.known[addr]
	r.mu.Unlock()
	if ok {
		return meta, nil
	}
	if r.chain == nil {
		return model.TokenMeta{Address: addr.Hex(), Source: model.TokenSourceNone}, nil
	}

	meta, err := dex.FetchTokenMeta(ctx, r.chain, addr, nil)
	if err != nil {
		return model.TokenMeta{Address: addr.Hex(), Source: model.TokenSourceNone}, err
	}
	r.mu.Lock()
	r.known[addr] = meta
	r.mu.Unlock()
	return meta, nil
}
