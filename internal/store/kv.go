// Package store persists records, ownership and rating facts, bookmarks and
// users on top of a small transactional key-value substrate.
//
// Each record is split into a metadata document plus one key per
// ownership fact and per rating fact, so concurrent writers touching
// different users' facts never overwrite each other. Writes run in
// optimistic transactions and are retried on conflict.
package store

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by Tx.Get when the key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrConflict is returned by KV.Update when a key read inside the
	// transaction was modified by another writer before commit.
	ErrConflict = errors.New("transaction conflict")
)

// KV is the storage substrate. Any other error returned by a backend is
// treated as transient.
type KV interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn in a read-write transaction. Writes are applied
	// atomically when fn returns nil and discarded otherwise. If a key read
	// by fn changed concurrently, Update returns ErrConflict.
	Update(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Tx is a transaction handle. Reads observe the transaction's own writes.
type Tx interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error

	// Members returns the set's members in ascending order.
	Members(set string) ([]string, error)
	AddMember(set, member string) error
	RemoveMember(set, member string) error
}
