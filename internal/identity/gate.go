// Package identity validates addresses and decides whether a sender is the
// trusted peer a node was configured with.
package identity

import (
	"context"
	"fmt"

	"fxrelay/internal/domain"
	"fxrelay/internal/storage"
)

// Gate stores a single trusted peer address. The address is written once at
// instantiation and never changes afterwards.
type Gate struct {
	item storage.Item[string]
}

// Init stores the trusted peer. It fails with domain.ErrConfig when a peer
// is already stored.
func (g Gate) Init(ctx context.Context, s storage.Store, peer string) error {
	_, ok, err := g.item.MayLoad(ctx, s)
	if err != nil {
		return fmt.Errorf("failed to read trusted peer: %w", err)
	}
	if ok {
		return fmt.Errorf("%w: trusted peer already set", domain.ErrConfig)
	}
	return g.item.Save(ctx, s, peer)
}

func (g Gate) Peer(ctx context.Context, s storage.Store) (string, error) {
	return g.item.Load(ctx, s)
}

// IsTrusted reports whether sender is the stored peer. A failed lookup is
// treated as untrusted.
func (g Gate) IsTrusted(ctx context.Context, s storage.Store, sender string) bool {
	peer, err := g.item.Load(ctx, s)
	if err != nil {
		return false
	}
	return peer != "" && peer == sender
}

// Authorize is IsTrusted returning domain.ErrUnauthorized.
func (g Gate) Authorize(ctx context.Context, s storage.Store, sender string) error {
	if !g.IsTrusted(ctx, s, sender) {
		return fmt.Errorf("%w: sender %s", domain.ErrUnauthorized, sender)
	}
	return nil
}

func NewGate(key string) Gate {
	return Gate{item: storage.NewItem[string](key)}
}
