package model

// LogRecord is an EVM-style log of a committed pool event. Logs produced by
// the replay engine use the operation sequence as BlockNumber and the
// operation hash as TxHash.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at"`
}
