package model

// Operation kinds accepted by the replay engine.
const (
	OpFund            = "fund"
	OpApprove         = "approve"
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
	OpTransferShares  = "transfer_shares"
)

// Operation is one line of a replay file. Only the fields used by Kind are
// read; amounts are base-10 strings.
type Operation struct {
	Seq       uint64  `json:"seq"`
	Kind      string  `json:"kind"`
	Caller    string  `json:"caller"`
	Timestamp uint64  `json:"timestamp,omitempty"`
	Deadline  *uint64 `json:"deadline,omitempty"`

	// fund, approve, transfer_shares
	Asset   string `json:"asset,omitempty"`
	Spender string `json:"spender,omitempty"`
	Amount  string `json:"amount,omitempty"`

	// add_liquidity, remove_liquidity
	AssetA         string `json:"asset_a,omitempty"`
	AssetB         string `json:"asset_b,omitempty"`
	AmountADesired string `json:"amount_a_desired,omitempty"`
	AmountBDesired string `json:"amount_b_desired,omitempty"`
	AmountAMin     string `json:"amount_a_min,omitempty"`
	AmountBMin     string `json:"amount_b_min,omitempty"`
	Liquidity      string `json:"liquidity,omitempty"`

	// swap
	TokenIn      string `json:"token_in,omitempty"`
	TokenOut     string `json:"token_out,omitempty"`
	AmountIn     string `json:"amount_in,omitempty"`
	AmountOutMin string `json:"amount_out_min,omitempty"`

	To string `json:"to,omitempty"`
}

// OpResult summarizes a successful operation.
type OpResult struct {
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Caller    string `json:"caller"`
	AmountA   string `json:"amount_a,omitempty"`
	AmountB   string `json:"amount_b,omitempty"`
	Liquidity string `json:"liquidity,omitempty"`
	Events    int    `json:"events"`
}

// OpError records a rejected operation.
type OpError struct {
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Caller    string `json:"caller"`
	Timestamp uint64 `json:"timestamp"`
	Error     string `json:"error"`
}
