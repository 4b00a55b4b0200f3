package requester

import "fxrelay/internal/domain"

type InstantiateMsg struct {
	CurrencyHubAddress string `json:"currency_hub_address"`
}

type ExecuteMsg struct {
	RequestTokenPrice  *RequestTokenPrice  `json:"request_token_price,omitempty"`
	ResponseTokenPrice *ResponseTokenPrice `json:"response_token_price,omitempty"`
}

type RequestTokenPrice struct {
	BaseAssetDenom  string `json:"base_asset_denom"`
	QuoteAssetDenom string `json:"quote_asset_denom"`
	QueryAddress    string `json:"query_address"`
}

type ResponseTokenPrice struct {
	BaseAssetDenom  string `json:"base_asset_denom"`
	QuoteAssetDenom string `json:"quote_asset_denom"`
	ArithmeticTwap  string `json:"arithmetic_twap"`
}

type QueryMsg struct {
	CalculatedBalance *struct{} `json:"calculated_balance,omitempty"`
	RequestStatus     *struct{} `json:"request_status,omitempty"`
}

type CalculatedBalanceResponse struct {
	QueryAddress     string `json:"query_address"`
	OriginalBalance  string `json:"original_balance"`
	ExchangedBalance string `json:"exchanged_balance"`
}

type RequestStatusResponse struct {
	RequestStatus domain.RequestStatus `json:"request_status"`
}

// hubExecuteMsg is what the currency hub accepts.
type hubExecuteMsg struct {
	QueryArithmeticTwap *queryArithmeticTwap `json:"query_arithmetic_twap"`
}

type queryArithmeticTwap struct {
	BaseAssetDenom  string `json:"base_asset_denom"`
	QuoteAssetDenom string `json:"quote_asset_denom"`
}
