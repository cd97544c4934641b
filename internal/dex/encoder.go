package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"pairPool/internal/amm"
	"pairPool/internal/model"
)

// EncodeEvent renders a pool event as log topics and data using the pool ABI.
func EncodeEvent(ev amm.Event) ([]common.Hash, []byte, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse pool abi: %w", err)
	}
	event, ok := poolABI.Events[ev.EventName()]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported event: %s", ev.EventName())
	}

	var indexed []common.Address
	var values []interface{}
	switch e := ev.(type) {
	case amm.LiquidityAdded:
		indexed = []common.Address{e.Provider}
		values = []interface{}{toBig(e.AmountA), toBig(e.AmountB), toBig(e.Liquidity)}
	case amm.LiquidityRemoved:
		indexed = []common.Address{e.Provider}
		values = []interface{}{toBig(e.AmountA), toBig(e.AmountB)}
	case amm.SwapExecuted:
		indexed = []common.Address{e.User, e.TokenIn, e.TokenOut}
		values = []interface{}{toBig(e.AmountIn), toBig(e.AmountOut)}
	default:
		return nil, nil, fmt.Errorf("unsupported event type %T", ev)
	}

	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return nil, nil, fmt.Errorf("pack %s: %w", event.Name, err)
	}

	topics := make([]common.Hash, 0, len(indexed)+1)
	topics = append(topics, event.ID)
	for _, addr := range indexed {
		topics = append(topics, common.BytesToHash(addr.Bytes()))
	}
	return topics, data, nil
}

// BuildLogRecord encodes ev into a LogRecord emitted by pool. Positional
// fields (block, tx, index, time) are left to the caller.
func BuildLogRecord(chainID uint64, pool common.Address, ev amm.Event) (model.LogRecord, error) {
	topics, data, err := EncodeEvent(ev)
	if err != nil {
		return model.LogRecord{}, err
	}
	hexTopics := make([]string, 0, len(topics))
	for _, topic := range topics {
		hexTopics = append(hexTopics, topic.Hex())
	}
	return model.LogRecord{
		ChainID: chainID,
		Address: pool.Hex(),
		Topics:  hexTopics,
		Data:    hexutil.Encode(data),
	}, nil
}

// EventData converts a pool event into its storage payload.
func EventData(ev amm.Event) (interface{}, error) {
	switch e := ev.(type) {
	case amm.LiquidityAdded:
		return model.LiquidityAddedData{
			Provider:  e.Provider.Hex(),
			AmountA:   decimal(e.AmountA),
			AmountB:   decimal(e.AmountB),
			Liquidity: decimal(e.Liquidity),
		}, nil
	case amm.LiquidityRemoved:
		return model.LiquidityRemovedData{
			Provider: e.Provider.Hex(),
			AmountA:  decimal(e.AmountA),
			AmountB:  decimal(e.AmountB),
		}, nil
	case amm.SwapExecuted:
		return model.SwapExecutedData{
			User:      e.User.Hex(),
			TokenIn:   e.TokenIn.Hex(),
			TokenOut:  e.TokenOut.Hex(),
			AmountIn:  decimal(e.AmountIn),
			AmountOut: decimal(e.AmountOut),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported event type %T", ev)
	}
}

// TopicOf returns topic0 for a pool event name.
func TopicOf(name string) (common.Hash, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return common.Hash{}, err
	}
	event, ok := poolABI.Events[name]
	if !ok {
		return common.Hash{}, fmt.Errorf("unsupported event: %s", name)
	}
	return event.ID, nil
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
