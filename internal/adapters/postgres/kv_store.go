package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fxrelay/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KVStore keeps node state in the node_kv table.
type KVStore struct {
	pool *pgxpool.Pool
}

type kvRow struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

func (s *KVStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	const q = `select value from node_kv where key = $1`

	var value []byte
	err := s.pool.QueryRow(ctx, q, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value []byte) error {
	return s.Apply(ctx, []storage.Op{{Key: key, Value: value}})
}

func (s *KVStore) Delete(ctx context.Context, key []byte) error {
	return s.Apply(ctx, []storage.Op{{Key: key}})
}

// Apply writes all ops in a single transaction.
func (s *KVStore) Apply(ctx context.Context, ops []storage.Op) error {
	if len(ops) == 0 {
		return nil
	}

	ops = compactOps(ops)
	upserts := make([]kvRow, 0, len(ops))
	deletes := make([][]byte, 0)
	for _, op := range ops {
		if op.IsDelete() {
			deletes = append(deletes, op.Key)
			continue
		}
		upserts = append(upserts, kvRow{Key: op.Key, Value: op.Value})
	}

	// []byte fields are marshalled as base64
	payloadJSON, err := json.Marshal(upserts)
	if err != nil {
		return fmt.Errorf("failed to marshal kv rows: %w", err)
	}

	const upsertQ = `
		with input_rows as (
		  select decode(r.key, 'base64') as key, decode(r.value, 'base64') as value
		  from json_to_recordset($1::json) as r(key text, value text)
		)
		insert into node_kv(key, value, updated_at)
		select key, value, now() from input_rows
		on conflict (key) do update
		set value = excluded.value, updated_at = now();
	`
	const deleteQ = `delete from node_kv where key = any($1)`

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(upserts) > 0 {
		if _, err = tx.Exec(ctx, upsertQ, json.RawMessage(payloadJSON)); err != nil {
			return fmt.Errorf("failed to upsert kv rows: %w", err)
		}
	}
	if len(deletes) > 0 {
		if _, err = tx.Exec(ctx, deleteQ, deletes); err != nil {
			return fmt.Errorf("failed to delete kv rows: %w", err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compactOps keeps the last op per key, in first-seen key order. A single
// upsert statement cannot touch the same row twice.
func compactOps(ops []storage.Op) []storage.Op {
	idx := make(map[string]int, len(ops))
	out := make([]storage.Op, 0, len(ops))
	for _, op := range ops {
		if i, ok := idx[string(op.Key)]; ok {
			out[i] = op
			continue
		}
		idx[string(op.Key)] = len(out)
		out = append(out, op)
	}
	return out
}

func NewKVStore(pool *pgxpool.Pool) *KVStore {
	return &KVStore{pool: pool}
}
