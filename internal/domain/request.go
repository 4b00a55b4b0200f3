package domain

// ContractRequest is the single outstanding price request of a requester node.
// A new request overwrites the previous one.
type ContractRequest struct {
	BaseAssetDenom  string `json:"base_asset_denom"`
	QuoteAssetDenom string `json:"quote_asset_denom"`
	QueryAddress    string `json:"query_address"`
}

// Matches reports whether an answer for base/quote belongs to this request.
func (r ContractRequest) Matches(base, quote string) bool {
	return r.BaseAssetDenom == base && r.QuoteAssetDenom == quote
}
