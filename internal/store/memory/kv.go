// Package memory is an in-process store.KV with optimistic concurrency.
// It backs tests and single-node deployments without redis.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/franckmandon/vinylib-sub000/internal/store"
)

var errReadOnly = errors.New("write in read-only transaction")

// KV keeps values and sets in maps. Every key and set carries a version
// that is bumped on write; a transaction whose reads went stale is rejected
// with store.ErrConflict at commit.
type KV struct {
	mu       sync.RWMutex
	values   map[string][]byte
	sets     map[string]map[string]struct{}
	versions map[string]uint64
	seq      uint64
	closed   bool
}

// New creates an empty memory KV
func New() *KV {
	return &KV{
		values:   make(map[string][]byte),
		sets:     make(map[string]map[string]struct{}),
		versions: make(map[string]uint64),
	}
}

func (kv *KV) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := kv.check(ctx); err != nil {
		return err
	}
	return fn(&tx{kv: kv, readOnly: true})
}

func (kv *KV) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := kv.check(ctx); err != nil {
		return err
	}
	t := &tx{kv: kv, buf: store.NewWriteBuffer(), reads: make(map[string]uint64)}
	if err := fn(t); err != nil {
		return err
	}
	return kv.commit(t)
}

func (kv *KV) Ping(ctx context.Context) error {
	return kv.check(ctx)
}

func (kv *KV) Close() error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	kv.closed = true
	return nil
}

// Len returns the number of plain keys stored
func (kv *KV) Len() int {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	return len(kv.values)
}

// Keys returns every plain key in ascending order
func (kv *KV) Keys() []string {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	keys := make([]string, 0, len(kv.values))
	for k := range kv.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (kv *KV) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	if kv.closed {
		return errors.New("memory kv closed")
	}
	return nil
}

func (kv *KV) commit(t *tx) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.closed {
		return errors.New("memory kv closed")
	}
	for name, seen := range t.reads {
		if kv.versions[name] != seen {
			return store.ErrConflict
		}
	}
	if t.buf.Empty() {
		return nil
	}

	t.buf.Apply(
		func(key string, value []byte) {
			kv.values[key] = value
			kv.bump(valueName(key))
		},
		func(key string) {
			delete(kv.values, key)
			kv.bump(valueName(key))
		},
		func(set, member string) {
			m, ok := kv.sets[set]
			if !ok {
				m = make(map[string]struct{})
				kv.sets[set] = m
			}
			m[member] = struct{}{}
			kv.bump(setName(set))
		},
		func(set, member string) {
			if m, ok := kv.sets[set]; ok {
				delete(m, member)
				if len(m) == 0 {
					delete(kv.sets, set)
				}
			}
			kv.bump(setName(set))
		},
	)
	return nil
}

func (kv *KV) bump(name string) {
	kv.seq++
	kv.versions[name] = kv.seq
}

func valueName(key string) string { return "k\x00" + key }
func setName(set string) string   { return "s\x00" + set }

type tx struct {
	kv       *KV
	buf      *store.WriteBuffer
	reads    map[string]uint64
	readOnly bool
}

func (t *tx) observe(name string) {
	if t.reads == nil {
		return
	}
	if _, ok := t.reads[name]; !ok {
		t.reads[name] = t.kv.versions[name]
	}
}

func (t *tx) Get(key string) ([]byte, error) {
	if t.buf != nil {
		if v, deleted, found := t.buf.Lookup(key); found {
			if deleted {
				return nil, store.ErrKeyNotFound
			}
			return v, nil
		}
	}

	t.kv.mu.RLock()
	defer t.kv.mu.RUnlock()

	t.observe(valueName(key))
	v, ok := t.kv.values[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *tx) Members(set string) ([]string, error) {
	t.kv.mu.RLock()
	t.observe(setName(set))
	base := make([]string, 0, len(t.kv.sets[set]))
	for m := range t.kv.sets[set] {
		base = append(base, m)
	}
	t.kv.mu.RUnlock()

	if t.buf != nil {
		return t.buf.Members(set, base), nil
	}
	sort.Strings(base)
	return base, nil
}

func (t *tx) Set(key string, value []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	t.buf.Set(key, value)
	return nil
}

func (t *tx) Delete(key string) error {
	if t.readOnly {
		return errReadOnly
	}
	t.buf.Delete(key)
	return nil
}

func (t *tx) AddMember(set, member string) error {
	if t.readOnly {
		return errReadOnly
	}
	t.buf.AddMember(set, member)
	return nil
}

func (t *tx) RemoveMember(set, member string) error {
	if t.readOnly {
		return errReadOnly
	}
	t.buf.RemoveMember(set, member)
	return nil
}
