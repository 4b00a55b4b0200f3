package requester

import (
	"context"
	"fmt"

	"fxrelay/internal/domain"
	"fxrelay/internal/fixedpoint"
	"fxrelay/internal/identity"
	"fxrelay/internal/storage"

	"github.com/holiman/uint256"
)

var (
	currencyHub   = identity.NewGate("currency_hub_address")
	sentRequest   = storage.NewItem[domain.ContractRequest]("sent_request")
	exchangeRate  = storage.NewItem[string]("exchange_rate")
	requestStatus = storage.NewItem[domain.RequestStatus]("request_status")
)

// Config is loaded once per invocation and handed to the handlers.
type Config struct {
	CurrencyHubAddress string
}

func loadConfig(ctx context.Context, s storage.Store) (Config, error) {
	hub, err := currencyHub.Peer(ctx, s)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return Config{CurrencyHubAddress: hub}, nil
}

func loadStatus(ctx context.Context, s storage.Store) (domain.RequestStatus, error) {
	st, ok, err := requestStatus.MayLoad(ctx, s)
	if err != nil {
		return domain.StatusNone, err
	}
	if !ok {
		return domain.StatusNone, nil
	}
	return st, nil
}

// advance applies ev to the stored status and persists the result.
func advance(ctx context.Context, s storage.Store, ev domain.StatusEvent) (domain.RequestStatus, error) {
	cur, err := loadStatus(ctx, s)
	if err != nil {
		return cur, err
	}
	next, err := cur.Next(ev)
	if err != nil {
		return cur, err
	}
	if err = requestStatus.Save(ctx, s, next); err != nil {
		return cur, err
	}
	return next, nil
}

func loadRequest(ctx context.Context, s storage.Store) (domain.ContractRequest, error) {
	req, ok, err := sentRequest.MayLoad(ctx, s)
	if err != nil {
		return req, err
	}
	if !ok {
		return req, domain.ErrNoRequestYet
	}
	return req, nil
}

func loadRate(ctx context.Context, s storage.Store) (*uint256.Int, bool, error) {
	raw, ok, err := exchangeRate.MayLoad(ctx, s)
	if err != nil || !ok {
		return nil, ok, err
	}
	rate, err := fixedpoint.ParseUint128(raw)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode stored rate: %w", err)
	}
	return rate, true, nil
}

func saveRate(ctx context.Context, s storage.Store, rate *uint256.Int) error {
	return exchangeRate.Save(ctx, s, rate.Dec())
}
