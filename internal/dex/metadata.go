package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pairPool/internal/chain"
	"pairPool/internal/model"
)

// PoolMetaCache caches pool metadata by address.
type PoolMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PoolMeta
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{data: make(map[common.Address]model.PoolMeta)}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// FetchPoolMeta loads the pool pair from chain and warms the token cache.
func FetchPoolMeta(ctx context.Context, chainClient *chain.Client, pool common.Address, tokenCache *TokenMetaCache, logger *zap.Logger) (model.PoolMeta, error) {
	if chainClient == nil {
		return model.PoolMeta{}, fmt.Errorf("chain client is nil")
	}

	poolABI, err := PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callPoolMethod(ctx, chainClient, pool, poolABI, "assetA", nil)
	if err != nil {
		return model.PoolMeta{}, err
	}
	assetA, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("assetA: %w", err)
	}

	values, err = callPoolMethod(ctx, chainClient, pool, poolABI, "assetB", nil)
	if err != nil {
		return model.PoolMeta{}, err
	}
	assetB, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("assetB: %w", err)
	}

	meta := model.PoolMeta{
		AssetA: assetA.Hex(),
		AssetB: assetB.Hex(),
	}

	if tokenCache != nil {
		log := logger
		if log == nil {
			log = zap.NewNop()
		}
		for _, token := range []common.Address{assetA, assetB} {
			if _, ok := tokenCache.Get(token); ok {
				continue
			}
			tokenMeta, err := FetchTokenMeta(ctx, chainClient, token, log)
			if err != nil {
				log.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
			}
			tokenCache.Set(token, tokenMeta)
		}
	}

	return meta, nil
}

// FetchPoolReserves loads reserves and share supply at a block height; zero
// means latest.
func FetchPoolReserves(ctx context.Context, chainClient *chain.Client, pool common.Address, blockNumber uint64, logger *zap.Logger) (model.PoolMeta, error) {
	if chainClient == nil {
		return model.PoolMeta{}, fmt.Errorf("chain client is nil")
	}

	poolABI, err := PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var blockPtr *big.Int
	if blockNumber > 0 {
		blockPtr = new(big.Int).SetUint64(blockNumber)
	}

	values, err := callPoolMethod(ctx, chainClient, pool, poolABI, "getReserves", blockPtr)
	if err != nil {
		if logger != nil {
			logger.Debug("getReserves call failed", zap.String("pool", pool.Hex()), zap.Error(err))
		}
		return model.PoolMeta{}, err
	}
	if len(values) != 2 {
		return model.PoolMeta{}, fmt.Errorf("getReserves return size %d", len(values))
	}
	reserveA, err := asBigInt(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("reserveA: %w", err)
	}
	reserveB, err := asBigInt(values[1])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("reserveB: %w", err)
	}

	meta := model.PoolMeta{
		ReserveA: reserveA.String(),
		ReserveB: reserveB.String(),
	}
	if values, err := callPoolMethod(ctx, chainClient, pool, poolABI, "totalSupply", blockPtr); err == nil {
		if supply, err := asBigInt(values[0]); err == nil {
			meta.TotalSupply = supply.String()
		}
	} else if logger != nil {
		logger.Debug("totalSupply call failed", zap.String("pool", pool.Hex()), zap.Error(err))
	}
	return meta, nil
}

// FetchBalance returns the token balance of owner at a block height; nil
// means latest.
func FetchBalance(ctx context.Context, chainClient *chain.Client, token, owner common.Address, blockNumber *big.Int) (*big.Int, error) {
	if chainClient == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	parsed, err := erc20ABIStringInstance()
	if err != nil {
		return nil, err
	}

	data, err := parsed.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := chainClient.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	values, err := parsed.Unpack("balanceOf", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("balanceOf return size %d", len(values))
	}
	return asBigInt(values[0])
}

func callPoolMethod(ctx context.Context, chainClient *chain.Client, pool common.Address, poolABI abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := poolABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pool, Data: data}
	resp, err := chainClient.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := poolABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls.
func FetchTokenMeta(ctx context.Context, chainClient *chain.Client, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex(), Source: model.TokenSourceNone}
	if chainClient == nil {
		return meta, fmt.Errorf("chain client is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := chainClient.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals
	meta.Source = model.TokenSourceRPC

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else if logger != nil {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

// asBigInt accepts the types abi.Unpack produces for unsigned integers.
func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
