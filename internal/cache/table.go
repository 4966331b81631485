package cache

// entry wraps a cached value with its version token. Deleted entries are
// kept as tombstones so that a stale fetch resolving after the delete
// cannot resurrect the value.
type entry[V any] struct {
	value   V
	version int64
	deleted bool
}

// table is one versioned entity kind. Writes carry a monotonically
// increasing version token; a write with a token lower than the stored one
// is silently discarded. Callers hold the store's lock.
type table[K comparable, V any] struct {
	entries map[K]*entry[V]
}

func newTable[K comparable, V any]() *table[K, V] {
	return &table[K, V]{entries: make(map[K]*entry[V])}
}

// put upserts value under key. Returns false if a newer write already
// landed and the value was discarded.
func (t *table[K, V]) put(key K, value V, version int64) bool {
	if e, ok := t.entries[key]; ok && version < e.version {
		return false
	}
	t.entries[key] = &entry[V]{value: value, version: version}
	return true
}

// del tombstones key. Returns false if a newer write already landed.
func (t *table[K, V]) del(key K, version int64) bool {
	e, ok := t.entries[key]
	if !ok {
		var zero V
		t.entries[key] = &entry[V]{value: zero, version: version, deleted: true}
		return true
	}
	if version < e.version {
		return false
	}
	e.deleted = true
	e.version = version
	return true
}

// get returns the live value under key.
func (t *table[K, V]) get(key K) (V, bool) {
	if e, ok := t.entries[key]; ok && !e.deleted {
		return e.value, true
	}
	var zero V
	return zero, false
}

// list returns all live values matching pred. A nil pred matches everything.
func (t *table[K, V]) list(pred func(V) bool) []V {
	var out []V
	for _, e := range t.entries {
		if e.deleted {
			continue
		}
		if pred == nil || pred(e.value) {
			out = append(out, e.value)
		}
	}
	return out
}

// replace applies a fetched snapshot: every item is upserted at version, and
// live entries within scope that are absent from the snapshot are
// tombstoned — unless a newer write already landed on them, in which case
// the snapshot is the stale side and loses.
func (t *table[K, V]) replace(items map[K]V, scope func(V) bool, version int64) {
	for key, e := range t.entries {
		if e.deleted || e.version > version {
			continue
		}
		if scope != nil && !scope(e.value) {
			continue
		}
		if _, ok := items[key]; !ok {
			e.deleted = true
			e.version = version
		}
	}
	for key, value := range items {
		t.put(key, value, version)
	}
}
