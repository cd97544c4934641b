package aggregate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"pairPool/internal/dex"
)

const (
	tvlMethodReserves = "reserves_x2"
	tvlMethodBlock    = "balance_of_block"
	tvlMethodLatest   = "balance_of_latest"
	tvlMethodNone     = "unavailable"
)

// poolTVL values the pool in B. Reserves carried by the events win; without
// them the pool's B balance is read from the chain.
func (a *Aggregator) poolTVL(ctx context.Context, acc *Accumulator) (*big.Int, string, error) {
	if acc.PoolMeta.ReserveB != "" {
		reserveB, err := parseBigInt(acc.PoolMeta.ReserveB)
		if err != nil {
			return nil, tvlMethodNone, err
		}
		return tvlFromReserve(reserveB), tvlMethodReserves, nil
	}
	if a.chainClient == nil {
		return nil, tvlMethodNone, nil
	}
	if !common.IsHexAddress(acc.PoolMeta.AssetB) || !common.IsHexAddress(acc.PoolAddress) {
		return nil, tvlMethodNone, fmt.Errorf("invalid address")
	}

	token := common.HexToAddress(acc.PoolMeta.AssetB)
	pool := common.HexToAddress(acc.PoolAddress)
	if acc.LastBlock > 0 {
		bal, err := dex.FetchBalance(ctx, a.chainClient, token, pool, new(big.Int).SetUint64(acc.LastBlock))
		if err == nil {
			return tvlFromReserve(bal), tvlMethodBlock, nil
		}
	}
	bal, err := dex.FetchBalance(ctx, a.chainClient, token, pool, nil)
	if err != nil {
		return nil, tvlMethodNone, fmt.Errorf("balanceOf failed: %w", err)
	}
	return tvlFromReserve(bal), tvlMethodLatest, nil
}
