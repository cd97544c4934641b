package model

// LiquidityAddedData is the decoded LiquidityAdded event payload.
type LiquidityAddedData struct {
	Provider  string `json:"provider"`
	AmountA   string `json:"amount_a"`
	AmountB   string `json:"amount_b"`
	Liquidity string `json:"liquidity"`
}

// LiquidityRemovedData is the decoded LiquidityRemoved event payload.
type LiquidityRemovedData struct {
	Provider string `json:"provider"`
	AmountA  string `json:"amount_a"`
	AmountB  string `json:"amount_b"`
}

// SwapExecutedData is the decoded SwapExecuted event payload.
type SwapExecutedData struct {
	User      string `json:"user"`
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
}
