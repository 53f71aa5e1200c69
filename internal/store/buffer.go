package store

import "sort"

// WriteBuffer collects the writes of a transaction until commit and lets
// reads inside the same transaction observe them. Backends without native
// read-your-writes transactions (redis, memory) build on it.
type WriteBuffer struct {
	values  map[string][]byte
	deleted map[string]bool
	members map[string]map[string]bool // set -> member -> added (false = removed)
}

func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{
		values:  make(map[string][]byte),
		deleted: make(map[string]bool),
		members: make(map[string]map[string]bool),
	}
}

func (b *WriteBuffer) Set(key string, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	b.values[key] = v
	delete(b.deleted, key)
}

func (b *WriteBuffer) Delete(key string) {
	delete(b.values, key)
	b.deleted[key] = true
}

// Lookup reports a buffered value. found is true when the buffer decides
// the outcome: either a value or a deletion (value == nil, deleted == true).
func (b *WriteBuffer) Lookup(key string) (value []byte, deleted, found bool) {
	if v, ok := b.values[key]; ok {
		return v, false, true
	}
	if b.deleted[key] {
		return nil, true, true
	}
	return nil, false, false
}

func (b *WriteBuffer) AddMember(set, member string) {
	b.memberOps(set)[member] = true
}

func (b *WriteBuffer) RemoveMember(set, member string) {
	b.memberOps(set)[member] = false
}

func (b *WriteBuffer) memberOps(set string) map[string]bool {
	ops, ok := b.members[set]
	if !ok {
		ops = make(map[string]bool)
		b.members[set] = ops
	}
	return ops
}

// Members merges the buffered membership changes into base and returns
// the result sorted.
func (b *WriteBuffer) Members(set string, base []string) []string {
	ops := b.members[set]
	merged := make(map[string]bool, len(base)+len(ops))
	for _, m := range base {
		merged[m] = true
	}
	for m, added := range ops {
		if added {
			merged[m] = true
		} else {
			delete(merged, m)
		}
	}
	out := make([]string, 0, len(merged))
	for m := range merged {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether nothing was written.
func (b *WriteBuffer) Empty() bool {
	return len(b.values) == 0 && len(b.deleted) == 0 && len(b.members) == 0
}

// Apply replays the buffered writes in a stable order.
func (b *WriteBuffer) Apply(
	set func(key string, value []byte),
	del func(key string),
	add func(set, member string),
	rem func(set, member string),
) {
	for _, k := range sortedKeys(b.deleted) {
		del(k)
	}
	for _, k := range sortedKeys(b.values) {
		set(k, b.values[k])
	}
	for _, s := range sortedKeys(b.members) {
		ops := b.members[s]
		for _, m := range sortedKeys(ops) {
			if ops[m] {
				add(s, m)
			} else {
				rem(s, m)
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
