package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// MatchChainID checks a configured chain id against the node's. Zero takes
// the node's id.
func MatchChainID(configured uint64, node *big.Int) (uint64, error) {
	if node == nil || !node.IsUint64() {
		return 0, fmt.Errorf("node chain id %v out of range", node)
	}
	if configured == 0 {
		return node.Uint64(), nil
	}
	if configured != node.Uint64() {
		return 0, fmt.Errorf("chain id mismatch: configured %d, node %d", configured, node.Uint64())
	}
	return configured, nil
}

// HeaderByNumber returns the block header by number; nil means latest.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.ethClient.HeaderByNumber(ctx, number)
}

// LatestTimestamp returns the timestamp of the latest block.
func (c *Client) LatestTimestamp(ctx context.Context) (uint64, error) {
	header, err := c.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	c.remember(header.Number.Uint64(), header.Time)
	return header.Time, nil
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}
	c.remember(number, header.Time)
	return header.Time, nil
}

func (c *Client) remember(number, ts uint64) {
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
