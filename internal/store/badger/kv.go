// Package badger implements store.KV on an embedded Badger database.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/franckmandon/vinylib-sub000/internal/store"
)

const (
	valuePrefix = "v\x00"
	setPrefix   = "s\x00"
)

// Options configures the database
type Options struct {
	Path     string
	InMemory bool
	Sync     bool
}

// KV stores plain values under "v\0<key>" and set members as empty values
// under "s\0<set>\0<member>", so listing a set is a prefix scan. Badger's
// own serializable transactions detect write conflicts.
type KV struct {
	db *badger.DB
}

// Open opens (or creates) the database
func Open(opts Options) (*KV, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	bopts.SyncWrites = opts.Sync
	bopts.CompactL0OnClose = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &KV{db: db}, nil
}

func (kv *KV) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return kv.db.View(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	})
}

func (kv *KV) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := kv.db.Update(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	})
	if errors.Is(err, badger.ErrConflict) {
		return store.ErrConflict
	}
	return err
}

func (kv *KV) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if kv.db.IsClosed() {
		return errors.New("badger db closed")
	}
	return nil
}

func (kv *KV) Close() error {
	return kv.db.Close()
}

type tx struct {
	txn *badger.Txn
}

func valueKey(key string) []byte { return []byte(valuePrefix + key) }

func memberPrefix(set string) []byte { return []byte(setPrefix + set + "\x00") }

func memberKey(set, member string) []byte {
	return append(memberPrefix(set), member...)
}

func (t *tx) Get(key string) ([]byte, error) {
	item, err := t.txn.Get(valueKey(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return item.ValueCopy(nil)
}

func (t *tx) Set(key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	return t.txn.Set(valueKey(key), v)
}

func (t *tx) Delete(key string) error {
	return t.txn.Delete(valueKey(key))
}

// Members iterates keys only; badger returns them in byte order.
func (t *tx) Members(set string) ([]string, error) {
	prefix := memberPrefix(set)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := t.txn.NewIterator(opts)
	defer it.Close()

	var members []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		members = append(members, string(it.Item().KeyCopy(nil)[len(prefix):]))
	}
	return members, nil
}

func (t *tx) AddMember(set, member string) error {
	return t.txn.Set(memberKey(set, member), nil)
}

func (t *tx) RemoveMember(set, member string) error {
	return t.txn.Delete(memberKey(set, member))
}
