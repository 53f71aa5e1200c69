package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/franckmandon/vinylib-sub000/internal/store"
)

// KV implements store.KV on redis. Values are plain strings, sets are
// redis sets. Update uses WATCH on every key read and applies the buffered
// writes in a MULTI/EXEC pipeline, so a concurrent change aborts the
// commit with store.ErrConflict.
type KV struct {
	client *redis.Client
}

// NewKV creates a redis-backed KV
func NewKV(client *redis.Client) *KV {
	return &KV{
		client: client,
	}
}

func (kv *KV) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(&tx{ctx: ctx, reader: kv.client})
}

func (kv *KV) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	err := kv.client.Watch(ctx, func(rtx *redis.Tx) error {
		t := &tx{ctx: ctx, reader: rtx, watcher: rtx, buf: store.NewWriteBuffer()}
		if err := fn(t); err != nil {
			return err
		}
		if t.buf.Empty() {
			return nil
		}

		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			t.buf.Apply(
				func(key string, value []byte) { pipe.Set(ctx, key, value, 0) },
				func(key string) { pipe.Del(ctx, key) },
				func(set, member string) { pipe.SAdd(ctx, set, member) },
				func(set, member string) { pipe.SRem(ctx, set, member) },
			)
			return nil
		})
		return err
	})
	if errors.Is(err, redis.TxFailedErr) {
		return store.ErrConflict
	}
	return err
}

func (kv *KV) Ping(ctx context.Context) error {
	return kv.client.Ping(ctx).Err()
}

func (kv *KV) Close() error {
	return kv.client.Close()
}

// reader is the subset of commands shared by *redis.Client and *redis.Tx
type reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

type tx struct {
	ctx     context.Context
	reader  reader
	watcher *redis.Tx
	buf     *store.WriteBuffer
	watched map[string]bool
}

// watch adds key to the transaction's WATCH list before it is read
func (t *tx) watch(key string) error {
	if t.watcher == nil {
		return nil
	}
	if t.watched == nil {
		t.watched = make(map[string]bool)
	}
	if t.watched[key] {
		return nil
	}
	if err := t.watcher.Watch(t.ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to watch %s: %w", key, err)
	}
	t.watched[key] = true
	return nil
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
	if err := t.watch(key); err != nil {
		return nil, err
	}

	data, err := t.reader.Get(t.ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (t *tx) Members(set string) ([]string, error) {
	if err := t.watch(set); err != nil {
		return nil, err
	}
	members, err := t.reader.SMembers(t.ctx, set).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read set %s: %w", set, err)
	}
	if t.buf != nil {
		return t.buf.Members(set, members), nil
	}
	sort.Strings(members)
	return members, nil
}

func (t *tx) Set(key string, value []byte) error {
	if t.buf == nil {
		return errors.New("write in read-only transaction")
	}
	t.buf.Set(key, value)
	return nil
}

func (t *tx) Delete(key string) error {
	if t.buf == nil {
		return errors.New("write in read-only transaction")
	}
	t.buf.Delete(key)
	return nil
}

func (t *tx) AddMember(set, member string) error {
	if t.buf == nil {
		return errors.New("write in read-only transaction")
	}
	t.buf.AddMember(set, member)
	return nil
}

func (t *tx) RemoveMember(set, member string) error {
	if t.buf == nil {
		return errors.New("write in read-only transaction")
	}
	t.buf.RemoveMember(set, member)
	return nil
}
