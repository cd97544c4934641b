package model

// Where the decimals of a TokenMeta came from.
const (
	TokenSourcePreset = "preset"
	TokenSourceRPC    = "rpc"
	// TokenSourceNone leaves amounts in base units.
	TokenSourceNone   = "none"
)

// TokenMeta describes a pool asset for reporting. Pool amounts are always
// base units; Decimals only scales what is shown.
type TokenMeta struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	Decimals uint8  `json:"decimals"`
	Source   string `json:"source"`
}
