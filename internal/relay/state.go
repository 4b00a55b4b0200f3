package relay

import (
	"context"
	"fmt"

	"fxrelay/internal/storage"
)

// Report is the last address and balance a reporter sent back.
type Report struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

var (
	queryDenom = storage.NewItem[string]("query_denom")
	lastReport = storage.NewItem[Report]("balance_info")
)

type Config struct {
	QueryDenom string
}

func loadConfig(ctx context.Context, s storage.Store) (Config, error) {
	denom, err := queryDenom.Load(ctx, s)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return Config{QueryDenom: denom}, nil
}
