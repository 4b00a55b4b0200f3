package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// --- Memory ---

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, []byte("a"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, []byte("a"), []byte("1")))
	v, err := m.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	// returned slices are copies
	v[0] = 'x'
	v, err = m.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, m.Delete(ctx, []byte("a")))
	_, err = m.Get(ctx, []byte("a"))
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, m.Len())
}

func TestMemory_Apply(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, []byte("gone"), []byte("x")))

	err := m.Apply(ctx, []Op{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("gone")},
	})
	require.NoError(t, err)

	v, err := m.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
	_, err = m.Get(ctx, []byte("gone"))
	require.ErrorIs(t, err, ErrNotFound)
}

// --- Cache ---

func TestCache_ReadsThroughAndBuffers(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	require.NoError(t, base.Set(ctx, []byte("k"), []byte("base")))

	c := NewCache(base)
	v, err := c.Get(ctx, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("base"), v)

	require.NoError(t, c.Set(ctx, []byte("k"), []byte("cached")))
	require.NoError(t, c.Set(ctx, []byte("new"), []byte("n")))

	v, err = c.Get(ctx, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("cached"), v)

	// base untouched until Write
	v, err = base.Get(ctx, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("base"), v)
	_, err = base.Get(ctx, []byte("new"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Write(ctx))
	v, err = base.Get(ctx, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("cached"), v)
	v, err = base.Get(ctx, []byte("new"))
	require.NoError(t, err)
	require.Equal(t, []byte("n"), v)
	require.Empty(t, c.Ops())
}

func TestCache_DeleteHidesParent(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	require.NoError(t, base.Set(ctx, []byte("k"), []byte("v")))

	c := NewCache(base)
	require.NoError(t, c.Delete(ctx, []byte("k")))
	_, err := c.Get(ctx, []byte("k"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Write(ctx))
	_, err = base.Get(ctx, []byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCache_DiscardedWritesNeverReachParent(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()

	c := NewCache(base)
	require.NoError(t, c.Set(ctx, []byte("k"), []byte("v")))
	require.Len(t, c.Ops(), 1)

	require.Equal(t, 0, base.Len())
}

func TestCache_Nested(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	outer := NewCache(base)
	inner := NewCache(outer)

	require.NoError(t, inner.Set(ctx, []byte("k"), []byte("inner")))
	_, err := outer.Get(ctx, []byte("k"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, inner.Write(ctx))
	v, err := outer.Get(ctx, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("inner"), v)
	require.Equal(t, 0, base.Len())

	require.NoError(t, outer.Write(ctx))
	require.Equal(t, 1, base.Len())
}

func TestCache_OpsSortedByKey(t *testing.T) {
	ctx := context.Background()
	c := NewCache(NewMemory())
	require.NoError(t, c.Set(ctx, []byte("b"), []byte("2")))
	require.NoError(t, c.Set(ctx, []byte("a"), []byte("1")))
	require.NoError(t, c.Delete(ctx, []byte("c")))

	ops := c.Ops()
	require.Len(t, ops, 3)
	require.Equal(t, "a", string(ops[0].Key))
	require.Equal(t, "b", string(ops[1].Key))
	require.Equal(t, "c", string(ops[2].Key))
	require.True(t, ops[2].IsDelete())
}

// --- Prefix ---

func TestPrefix_Isolation(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	a := Prefix(base, "node-a/")
	b := Prefix(base, "node-b/")

	require.NoError(t, a.Set(ctx, []byte("status"), []byte("1")))
	_, err := b.Get(ctx, []byte("status"))
	require.ErrorIs(t, err, ErrNotFound)

	v, err := base.Get(ctx, []byte("node-a/status"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, b.Apply(ctx, []Op{{Key: []byte("x"), Value: []byte("y")}}))
	v, err = base.Get(ctx, []byte("node-b/x"))
	require.NoError(t, err)
	require.Equal(t, []byte("y"), v)

	require.NoError(t, a.Delete(ctx, []byte("status")))
	_, err = base.Get(ctx, []byte("node-a/status"))
	require.ErrorIs(t, err, ErrNotFound)
}

// --- Item ---

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestItem_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	item := NewItem[sample]("sample")

	_, err := item.Load(ctx, s)
	require.ErrorIs(t, err, ErrNotFound)

	_, ok, err := item.MayLoad(ctx, s)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, item.Save(ctx, s, sample{Name: "x", Count: 2}))
	got, err := item.Load(ctx, s)
	require.NoError(t, err)
	require.Equal(t, sample{Name: "x", Count: 2}, got)

	raw, err := s.Get(ctx, []byte("sample"))
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"x","count":2}`, string(raw))

	require.NoError(t, item.Remove(ctx, s))
	_, ok, err = item.MayLoad(ctx, s)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestItem_DecodeError(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, []byte("sample"), []byte("{")))

	_, _, err := NewItem[sample]("sample").MayLoad(ctx, s)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

// --- Apply fallback ---

func TestApply_WithoutBatcher(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := struct{ Store }{m}

	require.NoError(t, Apply(ctx, s, []Op{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("a")},
	}))
	require.Equal(t, 1, m.Len())
}

// --- LevelDB ---

func TestLevelDB_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get(ctx, []byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Set(ctx, []byte("a"), []byte("1")))
	require.NoError(t, db.Apply(ctx, []Op{
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("a")},
	}))

	_, err = db.Get(ctx, []byte("a"))
	require.ErrorIs(t, err, ErrNotFound)
	v, err := db.Get(ctx, []byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)
}

func TestLevelDB_CacheCommit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := NewLevelDB(dir)
	require.NoError(t, err)

	c := NewCache(Prefix(db, "n/"))
	require.NoError(t, c.Set(ctx, []byte("k"), []byte("v")))
	require.NoError(t, c.Write(ctx))
	require.NoError(t, db.Close())

	reopened, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()
	v, err := reopened.Get(ctx, []byte("n/k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestNewLevelDB_EmptyPath(t *testing.T) {
	_, err := NewLevelDB("  ")
	require.Error(t, err)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, []byte("k"), []byte("v")))

	ro := ReadOnly(m)
	v, err := ro.Get(ctx, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
	require.ErrorIs(t, ro.Set(ctx, []byte("k"), []byte("x")), ErrReadOnly)
	require.ErrorIs(t, ro.Delete(ctx, []byte("k")), ErrReadOnly)
	require.ErrorIs(t, Apply(ctx, ro, []Op{{Key: []byte("k")}}), ErrReadOnly)
}
