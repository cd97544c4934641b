package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"pairPool/internal/amm"
	"pairPool/internal/model"
)

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	Topic0Map map[string]string
}

// PoolDecoder decodes LiquidityAdded, LiquidityRemoved and SwapExecuted logs.
type PoolDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewPoolDecoder builds a pool decoder. Topic0Map adds aliases for pools
// that emit the same events under different signatures.
func NewPoolDecoder(cfg DecoderConfig) (*PoolDecoder, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, 3)
	for _, name := range []string{amm.EventLiquidityAdded, amm.EventLiquidityRemoved, amm.EventSwapExecuted} {
		topicToName[strings.ToLower(poolABI.Events[name].ID.Hex())] = name
	}

	for topic0, name := range cfg.Topic0Map {
		original := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", original)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &PoolDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *PoolDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *PoolDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}
	pool := common.HexToAddress(log.Address)

	poolMeta, err := getPoolMeta(ctx, pool, log.BlockNumber)
	if err != nil {
		return nil, err
	}

	var decoded interface{}
	switch name {
	case amm.EventLiquidityAdded:
		decoded, err = d.decodeLiquidityAdded(log)
	case amm.EventLiquidityRemoved:
		decoded, err = d.decodeLiquidityRemoved(log)
	case amm.EventSwapExecuted:
		decoded, err = d.decodeSwapExecuted(log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, err
	}
	return buildTypedEvent(log, name, decoded, poolMeta), nil
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "liquidityadded", "add", "mint":
		return amm.EventLiquidityAdded
	case "liquidityremoved", "remove", "burn":
		return amm.EventLiquidityRemoved
	case "swapexecuted", "swap":
		return amm.EventSwapExecuted
	default:
		return ""
	}
}

func getPoolMeta(ctx DecodeContext, pool common.Address, blockNumber uint64) (model.PoolMeta, error) {
	var meta model.PoolMeta
	var ok bool
	if ctx.PoolMetaCache != nil {
		meta, ok = ctx.PoolMetaCache.Get(pool)
	}
	if ok && !ctx.IncludeLiveMeta {
		return meta, nil
	}
	if ctx.Chain == nil {
		if ok {
			return meta, nil
		}
		return model.PoolMeta{}, fmt.Errorf("no metadata for pool %s and chain client is nil", pool.Hex())
	}

	callCtx := ctx.Context
	if callCtx == nil {
		callCtx = context.Background()
	}

	if !ok {
		var err error
		meta, err = FetchPoolMeta(callCtx, ctx.Chain, pool, ctx.TokenMetaCache, ctx.Logger)
		if err != nil {
			return model.PoolMeta{}, err
		}
		if ctx.PoolMetaCache != nil {
			ctx.PoolMetaCache.Set(pool, meta)
		}
	}

	if ctx.IncludeLiveMeta {
		if live, err := FetchPoolReserves(callCtx, ctx.Chain, pool, blockNumber, ctx.Logger); err == nil {
			meta.ReserveA = live.ReserveA
			meta.ReserveB = live.ReserveB
			meta.TotalSupply = live.TotalSupply
		}
	}
	return meta, nil
}

func buildTypedEvent(log model.LogRecord, name string, decoded interface{}, meta model.PoolMeta) *model.TypedEvent {
	raw := &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data}
	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		PoolMeta:    meta,
		Raw:         raw,
	}
}

func (d *PoolDecoder) decodeLiquidityAdded(log model.LogRecord) (model.LiquidityAddedData, error) {
	event := d.poolABI.Events[amm.EventLiquidityAdded]
	var indexed struct {
		Provider common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.LiquidityAddedData{}, err
	}

	amounts, err := unpackAmounts(event, log.Data, 3)
	if err != nil {
		return model.LiquidityAddedData{}, err
	}

	return model.LiquidityAddedData{
		Provider:  indexed.Provider.Hex(),
		AmountA:   amounts[0].String(),
		AmountB:   amounts[1].String(),
		Liquidity: amounts[2].String(),
	}, nil
}

func (d *PoolDecoder) decodeLiquidityRemoved(log model.LogRecord) (model.LiquidityRemovedData, error) {
	event := d.poolABI.Events[amm.EventLiquidityRemoved]
	var indexed struct {
		Provider common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.LiquidityRemovedData{}, err
	}

	amounts, err := unpackAmounts(event, log.Data, 2)
	if err != nil {
		return model.LiquidityRemovedData{}, err
	}

	return model.LiquidityRemovedData{
		Provider: indexed.Provider.Hex(),
		AmountA:  amounts[0].String(),
		AmountB:  amounts[1].String(),
	}, nil
}

func (d *PoolDecoder) decodeSwapExecuted(log model.LogRecord) (model.SwapExecutedData, error) {
	event := d.poolABI.Events[amm.EventSwapExecuted]
	var indexed struct {
		User     common.Address
		TokenIn  common.Address
		TokenOut common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.SwapExecutedData{}, err
	}

	amounts, err := unpackAmounts(event, log.Data, 2)
	if err != nil {
		return model.SwapExecutedData{}, err
	}

	return model.SwapExecutedData{
		User:      indexed.User.Hex(),
		TokenIn:   indexed.TokenIn.Hex(),
		TokenOut:  indexed.TokenOut.Hex(),
		AmountIn:  amounts[0].String(),
		AmountOut: amounts[1].String(),
	}, nil
}

func parseIndexed(event abi.Event, topics []string, out interface{}) error {
	indexedTopics, err := parseIndexedTopics(event, topics)
	if err != nil {
		return err
	}
	if err := abi.ParseTopics(out, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackAmounts(event abi.Event, dataHex string, want int) ([]*big.Int, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	out := make([]*big.Int, 0, want)
	for _, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		out = append(out, amount)
	}
	return out, nil
}
