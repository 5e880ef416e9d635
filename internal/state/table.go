package state

import (
	"sort"
	"sync"
)

// Entity is any server-side row with a stable identifier.
type Entity interface {
	Key() uint64
}

// Table is a keyed collection owned by a single domain processor. Mutations
// run under an exclusive lock; reads may run concurrently with each other.
type Table[T Entity] struct {
	mu    sync.RWMutex
	items map[uint64]T
}

// NewTable returns an empty table.
func NewTable[T Entity]() *Table[T] {
	return &Table[T]{items: make(map[uint64]T)}
}

// ReplaceAll discards the current contents and repopulates from rows.
// Used for initial snapshots and post-reconnect reseeding only.
func (t *Table[T]) ReplaceAll(rows []T) {
	next := make(map[uint64]T, len(rows))
	for _, row := range rows {
		next[row.Key()] = row
	}
	t.mu.Lock()
	t.items = next
	t.mu.Unlock()
}

// Upsert stores row under its key. A duplicate insert and an update for an
// unknown id both collapse to the same operation, which keeps snapshot/diff
// races harmless.
func (t *Table[T]) Upsert(row T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, existed := t.items[row.Key()]
	t.items[row.Key()] = row
	return !existed
}

// Delete removes the entity with the given id. Deleting an absent id is a
// no-op.
func (t *Table[T]) Delete(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, existed := t.items[id]
	delete(t.items, id)
	return existed
}

// Get returns the entity with the given id.
func (t *Table[T]) Get(id uint64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.items[id]
	return row, ok
}

// Len reports the number of entities currently held.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Snapshot copies all entities, ordered by id so projections are stable
// across calls.
func (t *Table[T]) Snapshot() []T {
	t.mu.RLock()
	rows := make([]T, 0, len(t.items))
	for _, row := range t.items {
		rows = append(rows, row)
	}
	t.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key() < rows[j].Key() })
	return rows
}

// Clear drops every entity. Equivalent to ReplaceAll(nil).
func (t *Table[T]) Clear() {
	t.mu.Lock()
	t.items = make(map[uint64]T)
	t.mu.Unlock()
}
