package model

import "encoding/json"

// TypedEvent is a decoded pool event with the pool state attached.
type TypedEvent struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
	PoolMeta    PoolMeta    `json:"pool_meta"`
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// TypedEventRecord is TypedEvent as read back from JSONL, with the payload
// left undecoded until the event name is known.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	PoolMeta    PoolMeta        `json:"pool_meta"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

// RawLogRef keeps the raw log for traceability.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}
