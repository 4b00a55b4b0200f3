package storage

import (
	"context"
	"errors"
)

var ErrReadOnly = errors.New("store is read only")

type readOnly struct {
	inner Store
}

// ReadOnly wraps s so that every write fails with ErrReadOnly.
func ReadOnly(s Store) Store {
	return readOnly{inner: s}
}

func (r readOnly) Get(ctx context.Context, key []byte) ([]byte, error) {
	return r.inner.Get(ctx, key)
}

func (readOnly) Set(context.Context, []byte, []byte) error { return ErrReadOnly }

func (readOnly) Delete(context.Context, []byte) error { return ErrReadOnly }
