package engine

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"pairPool/internal/amm"
	"pairPool/internal/dex"
	"pairPool/internal/model"
)

// opHash identifies an operation the way a transaction hash identifies a
// transaction.
func opHash(op model.Operation) (common.Hash, error) {
	raw, err := json.Marshal(op)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode operation %d: %w", op.Seq, err)
	}
	return crypto.Keccak256Hash(raw), nil
}

// buildRecords turns the events of one committed operation into log records
// and typed events. meta carries the pool state after the operation.
func buildRecords(chainID uint64, pool common.Address, op model.Operation, events []amm.Event, timestamp uint64, meta model.PoolMeta, ingestedAt time.Time) ([]model.LogRecord, []model.TypedEvent, error) {
	txHash, err := opHash(op)
	if err != nil {
		return nil, nil, err
	}

	logs := make([]model.LogRecord, 0, len(events))
	typed := make([]model.TypedEvent, 0, len(events))
	for i, ev := range events {
		record, err := dex.BuildLogRecord(chainID, pool, ev)
		if err != nil {
			return nil, nil, err
		}
		record.BlockNumber = op.Seq
		record.BlockHash = common.BigToHash(new(big.Int).SetUint64(op.Seq)).Hex()
		record.TxHash = txHash.Hex()
		record.LogIndex = uint64(i)
		record.Timestamp = timestamp
		record.IngestedAt = ingestedAt.UTC().Format(time.RFC3339Nano)
		logs = append(logs, record)

		decoded, err := dex.EventData(ev)
		if err != nil {
			return nil, nil, err
		}
		typed = append(typed, model.TypedEvent{
			ChainID:     chainID,
			BlockNumber: op.Seq,
			TxHash:      record.TxHash,
			LogIndex:    record.LogIndex,
			Address:     record.Address,
			EventName:   ev.EventName(),
			Timestamp:   timestamp,
			Decoded:     decoded,
			PoolMeta:    meta,
			Raw: &model.RawLogRef{
				Topic0: record.Topics[0],
				Data:   record.Data,
			},
		})
	}
	return logs, typed, nil
}

func buildOpError(op model.Operation, timestamp uint64, err error) model.OpError {
	return model.OpError{
		Seq:       op.Seq,
		Kind:      op.Kind,
		Caller:    op.Caller,
		Timestamp: timestamp,
		Error:     err.Error(),
	}
}
