// Package ordered provides an insertion-ordered map with explicit defaulting.
package ordered

import (
	"cmp"
	"iter"
	"slices"
)

// Map keeps keys in first-insertion order. Missing keys are never created
// implicitly: use GetOrInsert.
type Map[K cmp.Ordered, V any] struct {
	index map[K]int
	keys  []K
	vals  []V
}

// New returns an empty Map.
func New[K cmp.Ordered, V any]() *Map[K, V] {
	return &Map[K, V]{index: make(map[K]int)}
}

// GetOrInsert returns the value stored under key, inserting newFn() first if
// the key is absent.
func (m *Map[K, V]) GetOrInsert(key K, newFn func() V) V {
	if i, ok := m.index[key]; ok {
		return m.vals[i]
	}
	v := newFn()
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, v)
	return v
}

// Get looks up key without inserting.
func (m *Map[K, V]) Get(key K) (V, bool) {
	i, ok := m.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return m.vals[i], true
}

// Set stores v under key, keeping the original position of an existing key.
func (m *Map[K, V]) Set(key K, v V) {
	if i, ok := m.index[key]; ok {
		m.vals[i] = v
		return
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, v)
}

func (m *Map[K, V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	return slices.Clone(m.keys)
}

// Values returns the values in insertion order.
func (m *Map[K, V]) Values() []V {
	return slices.Clone(m.vals)
}

// All iterates key/value pairs in insertion order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i, k := range m.keys {
			if !yield(k, m.vals[i]) {
				return
			}
		}
	}
}

// SortedKeys returns the keys in ascending order.
func (m *Map[K, V]) SortedKeys() []K {
	keys := slices.Clone(m.keys)
	slices.Sort(keys)
	return keys
}

// SortedValues returns the values ordered by ascending key.
func (m *Map[K, V]) SortedValues() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.SortedKeys() {
		out = append(out, m.vals[m.index[k]])
	}
	return out
}
