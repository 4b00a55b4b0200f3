package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDB is a persistent Store backed by goleveldb.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens (or creates) a LevelDB database at path.
func NewLevelDB(path string) (*LevelDB, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("leveldb path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve leveldb path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(_ context.Context, key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read leveldb key: %w", err)
	}
	return v, nil
}

func (l *LevelDB) Set(_ context.Context, key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Delete(_ context.Context, key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) Apply(_ context.Context, ops []Op) error {
	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.IsDelete() {
			batch.Delete(op.Key)
			continue
		}
		batch.Put(op.Key, op.Value)
	}
	if err := l.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write leveldb batch: %w", err)
	}
	return nil
}

func (l *LevelDB) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
