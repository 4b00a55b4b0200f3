// Package bank holds token balances that nodes observe through
// QueryBalance.
package bank

import (
	"context"
	"fmt"

	"fxrelay/internal/domain"
	"fxrelay/internal/fixedpoint"
	"fxrelay/internal/storage"

	"github.com/holiman/uint256"
)

type Keeper struct {
	store storage.Store
}

func balanceItem(address, denom string) storage.Item[string] {
	return storage.NewItem[string]("balance/" + address + "/" + denom)
}

// QueryBalance returns the balance of address in denom. Unknown balances are
// zero.
func (k *Keeper) QueryBalance(ctx context.Context, address, denom string) (*uint256.Int, error) {
	if denom == "" {
		return nil, domain.ErrDenomRequired
	}
	raw, ok, err := balanceItem(address, denom).MayLoad(ctx, k.store)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance: %w", err)
	}
	if !ok {
		return uint256.NewInt(0), nil
	}
	amount, err := fixedpoint.ParseUint128(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored balance: %w", err)
	}
	return amount, nil
}

func (k *Keeper) SetBalance(ctx context.Context, address, denom string, amount *uint256.Int) error {
	if denom == "" {
		return domain.ErrDenomRequired
	}
	if amount == nil || amount.BitLen() > 128 {
		return fmt.Errorf("%w: balance out of range", domain.ErrNumericParse)
	}
	return balanceItem(address, denom).Save(ctx, k.store, amount.Dec())
}

func NewKeeper(store storage.Store) *Keeper {
	return &Keeper{store: storage.Prefix(store, "bank/")}
}
