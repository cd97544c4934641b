package model

// PoolMeta describes the pool pair and, when known, its state right after
// the event was emitted.
type PoolMeta struct {
	AssetA      string `json:"asset_a"`
	AssetB      string `json:"asset_b"`
	ReserveA    string `json:"reserve_a,omitempty"`
	ReserveB    string `json:"reserve_b,omitempty"`
	TotalSupply string `json:"total_supply,omitempty"`
}
