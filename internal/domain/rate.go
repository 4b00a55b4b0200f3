package domain

// Pair identifies a price by its base and quote denominations.
type Pair struct {
	Base  string `json:"base_asset_denom"`
	Quote string `json:"quote_asset_denom"`
}

func (p Pair) Reversed() Pair {
	return Pair{
		Base:  p.Quote,
		Quote: p.Base,
	}
}

func (p Pair) String() string { return p.Base + "/" + p.Quote }
