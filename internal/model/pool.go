package model

// PoolSnapshot is the persisted state of a pool and of the asset ledger it
// settles against. LastSeq is the last operation folded into it.
type PoolSnapshot struct {
	ChainID     uint64            `json:"chain_id"`
	Address     string            `json:"address"`
	AssetA      string            `json:"asset_a"`
	AssetB      string            `json:"asset_b"`
	ReserveA    string            `json:"reserve_a"`
	ReserveB    string            `json:"reserve_b"`
	TotalSupply string            `json:"total_supply"`
	Shares      map[string]string `json:"shares"`
	Holdings    []Holding         `json:"holdings,omitempty"`
	Allowances  []Allowance       `json:"allowances,omitempty"`
	LastSeq     uint64            `json:"last_seq"`
	UpdatedAt   string            `json:"updated_at"`
}

// Holding is a non-zero asset balance.
type Holding struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// Allowance is a non-zero spending grant.
type Allowance struct {
	Asset   string `json:"asset"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}
