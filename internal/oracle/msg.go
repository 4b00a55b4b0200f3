package oracle

type InstantiateMsg struct {
	Feeder string `json:"feeder"`
}

type ExecuteMsg struct {
	SetPrices           *SetPrices           `json:"set_prices,omitempty"`
	QueryArithmeticTwap *QueryArithmeticTwap `json:"query_arithmetic_twap,omitempty"`
}

type Price struct {
	BaseAssetDenom  string `json:"base_asset_denom"`
	QuoteAssetDenom string `json:"quote_asset_denom"`
	ArithmeticTwap  string `json:"arithmetic_twap"`
}

type SetPrices struct {
	Prices []Price `json:"prices"`
}

type QueryArithmeticTwap struct {
	BaseAssetDenom  string `json:"base_asset_denom"`
	QuoteAssetDenom string `json:"quote_asset_denom"`
}

type QueryMsg struct {
	ArithmeticTwap *QueryArithmeticTwap `json:"arithmetic_twap,omitempty"`
}

type ArithmeticTwapResponse struct {
	ArithmeticTwap string `json:"arithmetic_twap"`
}

// requesterExecuteMsg is the answer sent back to whoever asked for a price.
type requesterExecuteMsg struct {
	ResponseTokenPrice *Price `json:"response_token_price"`
}
