package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const pairPoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountA", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountB", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "liquidity", "type": "uint256"}
    ],
    "name": "LiquidityAdded",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountA", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountB", "type": "uint256"}
    ],
    "name": "LiquidityRemoved",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "tokenIn", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "tokenOut", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountOut", "type": "uint256"}
    ],
    "name": "SwapExecuted",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "assetA",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "assetB",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getReserves",
    "outputs": [
      {"internalType": "uint256", "name": "reserveA", "type": "uint256"},
      {"internalType": "uint256", "name": "reserveB", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalSupply",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	pairPoolABI     abi.ABI
	pairPoolABIOnce sync.Once
	pairPoolABIErr  error
)

// PoolABI returns the parsed pool ABI.
func PoolABI() (abi.ABI, error) {
	pairPoolABIOnce.Do(func() {
		pairPoolABI, pairPoolABIErr = abi.JSON(strings.NewReader(pairPoolABIJSON))
	})
	return pairPoolABI, pairPoolABIErr
}
