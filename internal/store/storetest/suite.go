// Package storetest holds the behaviour every store.KV backend must share.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckmandon/vinylib-sub000/internal/store"
)

// Run exercises a KV backend. newKV must return an empty KV.
func Run(t *testing.T, newKV func(t *testing.T) store.KV) {
	t.Run("get missing key", func(t *testing.T) {
		kv := newKV(t)
		err := kv.View(context.Background(), func(tx store.Tx) error {
			_, err := tx.Get("missing")
			return err
		})
		assert.ErrorIs(t, err, store.ErrKeyNotFound)
	})

	t.Run("set get delete", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		require.NoError(t, kv.Update(ctx, func(tx store.Tx) error {
			return tx.Set("k", []byte("v1"))
		}))
		assert.Equal(t, []byte("v1"), get(t, kv, "k"))

		require.NoError(t, kv.Update(ctx, func(tx store.Tx) error {
			return tx.Delete("k")
		}))
		err := kv.View(ctx, func(tx store.Tx) error {
			_, err := tx.Get("k")
			return err
		})
		assert.ErrorIs(t, err, store.ErrKeyNotFound)
	})

	t.Run("sets are sorted", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		require.NoError(t, kv.Update(ctx, func(tx store.Tx) error {
			for _, m := range []string{"c", "a", "b"} {
				if err := tx.AddMember("s", m); err != nil {
					return err
				}
			}
			return nil
		}))
		assert.Equal(t, []string{"a", "b", "c"}, members(t, kv, "s"))

		require.NoError(t, kv.Update(ctx, func(tx store.Tx) error {
			return tx.RemoveMember("s", "b")
		}))
		assert.Equal(t, []string{"a", "c"}, members(t, kv, "s"))
		assert.Empty(t, members(t, kv, "other"))
	})

	t.Run("reads see own writes", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		require.NoError(t, kv.Update(ctx, func(tx store.Tx) error {
			if err := tx.Set("k", []byte("v")); err != nil {
				return err
			}
			got, err := tx.Get("k")
			if err != nil {
				return err
			}
			if string(got) != "v" {
				return errors.New("write not visible")
			}
			if err := tx.AddMember("s", "x"); err != nil {
				return err
			}
			ms, err := tx.Members("s")
			if err != nil {
				return err
			}
			if len(ms) != 1 || ms[0] != "x" {
				return errors.New("member not visible")
			}
			return nil
		}))
	})

	t.Run("failed update is discarded", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()
		boom := errors.New("boom")

		err := kv.Update(ctx, func(tx store.Tx) error {
			if err := tx.Set("k", []byte("v")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		err = kv.View(ctx, func(tx store.Tx) error {
			_, err := tx.Get("k")
			return err
		})
		assert.ErrorIs(t, err, store.ErrKeyNotFound)
	})

	t.Run("concurrent read-modify-write never loses updates", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()
		require.NoError(t, kv.Update(ctx, func(tx store.Tx) error {
			return tx.Set("counter", []byte{0})
		}))

		const writers = 10
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					err := kv.Update(ctx, func(tx store.Tx) error {
						v, err := tx.Get("counter")
						if err != nil {
							return err
						}
						return tx.Set("counter", []byte{v[0] + 1})
					})
					if errors.Is(err, store.ErrConflict) {
						continue
					}
					assert.NoError(t, err)
					return
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, []byte{writers}, get(t, kv, "counter"))
	})

	t.Run("ping", func(t *testing.T) {
		kv := newKV(t)
		assert.NoError(t, kv.Ping(context.Background()))
	})
}

func get(t *testing.T, kv store.KV, key string) []byte {
	t.Helper()
	var out []byte
	require.NoError(t, kv.View(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.Get(key)
		return err
	}))
	return out
}

func members(t *testing.T, kv store.KV, set string) []string {
	t.Helper()
	var out []string
	require.NoError(t, kv.View(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = tx.Members(set)
		return err
	}))
	return out
}
