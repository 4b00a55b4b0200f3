package adapters

import (
	"context"
)

// RateClient fetches conversion rates for a base currency code,
// e.g. {"EUR": 0.92, "JPY": 150.1} for "USD".
type RateClient interface {
	GetExchangeRates(ctx context.Context, code string) (map[string]float64, error)
}

// QuoteCache keeps recently fetched conversion rates per base code.
type QuoteCache interface {
	Get(base string) (map[string]float64, bool)
	Set(base string, rates map[string]float64)
	CleanBatch(bases []string)
}
