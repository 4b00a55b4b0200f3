package storage

import "context"

// Prefixed namespaces every key of an underlying Store.
type Prefixed struct {
	inner  Store
	prefix []byte
}

func Prefix(inner Store, prefix string) *Prefixed {
	return &Prefixed{inner: inner, prefix: []byte(prefix)}
}

func (p *Prefixed) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

func (p *Prefixed) Get(ctx context.Context, key []byte) ([]byte, error) {
	return p.inner.Get(ctx, p.key(key))
}

func (p *Prefixed) Set(ctx context.Context, key, value []byte) error {
	return p.inner.Set(ctx, p.key(key), value)
}

func (p *Prefixed) Delete(ctx context.Context, key []byte) error {
	return p.inner.Delete(ctx, p.key(key))
}

func (p *Prefixed) Apply(ctx context.Context, ops []Op) error {
	prefixed := make([]Op, len(ops))
	for i, op := range ops {
		prefixed[i] = Op{Key: p.key(op.Key), Value: op.Value}
	}
	return Apply(ctx, p.inner, prefixed)
}
