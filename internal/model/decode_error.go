package model

// Stages at which a raw log line can fail.
const (
	DecodeStageParse     = "parse"
	DecodeStageTopic     = "topic"
	DecodeStageTimestamp = "timestamp"
	DecodeStageDecode    = "decode"
)

// DecodeError records a log line that did not become a typed event.
type DecodeError struct {
	Stage       string `json:"stage"`
	ChainID     uint64 `json:"chain_id,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address,omitempty"`
	Topic0      string `json:"topic0,omitempty"`
	Error       string `json:"error"`
}

// NewDecodeError ties err to the log it came from. A zero record is fine
// for lines that did not parse.
func NewDecodeError(stage string, record LogRecord, err error) DecodeError {
	out := DecodeError{
		Stage:       stage,
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Error:       err.Error(),
	}
	if len(record.Topics) > 0 {
		out.Topic0 = record.Topics[0]
	}
	return out
}
