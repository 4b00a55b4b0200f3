// Package storage provides the key-value stores backing node state.
//
// Nodes never see each other's data: every node gets its own Prefix view of a
// shared backend. Writes made while handling a message go to a Cache that the
// host commits in one batch once the whole call succeeded.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is a byte-oriented key-value store. Get returns ErrNotFound for
// missing keys.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
}

// Op is a single write in a batch. A nil Value deletes Key.
type Op struct {
	Key   []byte
	Value []byte
}

func (o Op) IsDelete() bool { return o.Value == nil }

// Batcher applies a list of writes atomically. Ops apply in order, so the
// last op on a repeated key wins.
type Batcher interface {
	Apply(ctx context.Context, ops []Op) error
}

// Apply writes ops to s, atomically when s supports it.
func Apply(ctx context.Context, s Store, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if b, ok := s.(Batcher); ok {
		return b.Apply(ctx, ops)
	}
	for _, op := range ops {
		var err error
		if op.IsDelete() {
			err = s.Delete(ctx, op.Key)
		} else {
			err = s.Set(ctx, op.Key, op.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
