package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Item is a single JSON-encoded value stored under a fixed key.
type Item[T any] struct {
	key string
}

func NewItem[T any](key string) Item[T] {
	return Item[T]{key: key}
}

func (i Item[T]) Key() string { return i.key }

// Load returns the stored value or an error wrapping ErrNotFound.
func (i Item[T]) Load(ctx context.Context, s Store) (T, error) {
	var v T
	raw, err := s.Get(ctx, []byte(i.key))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return v, fmt.Errorf("failed to load %q: %w", i.key, ErrNotFound)
		}
		return v, fmt.Errorf("failed to load %q: %w", i.key, err)
	}
	if err = json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode %q: %w", i.key, err)
	}
	return v, nil
}

// MayLoad is Load that reports a missing value with ok=false instead of an error.
func (i Item[T]) MayLoad(ctx context.Context, s Store) (v T, ok bool, err error) {
	v, err = i.Load(ctx, s)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

func (i Item[T]) Save(ctx context.Context, s Store, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", i.key, err)
	}
	if err = s.Set(ctx, []byte(i.key), raw); err != nil {
		return fmt.Errorf("failed to save %q: %w", i.key, err)
	}
	return nil
}

func (i Item[T]) Remove(ctx context.Context, s Store) error {
	if err := s.Delete(ctx, []byte(i.key)); err != nil {
		return fmt.Errorf("failed to remove %q: %w", i.key, err)
	}
	return nil
}
