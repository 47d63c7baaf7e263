// Package local provides in-process implementations of the domain cache
// interfaces. They back single-replica deployments and tests when Redis is
// not configured.
package local

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTLMap is a mutex-guarded map whose entries expire. Expired entries are
// dropped lazily on read and by Sweep.
type TTLMap[V any] struct {
	mu  sync.Mutex
	m   map[string]entry[V]
	now func() time.Time
}

// NewTTLMap creates an empty map.
func NewTTLMap[V any]() *TTLMap[V] {
	return &TTLMap[V]{m: make(map[string]entry[V]), now: time.Now}
}

// Set stores v under key for ttl. A non-positive ttl never expires.
func (t *TTLMap[V]) Set(key string, v V, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = t.now().Add(ttl)
	}
	t.mu.Lock()
	t.m[key] = entry[V]{value: v, expires: exp}
	t.mu.Unlock()
}

// Get returns the live value under key.
func (t *TTLMap[V]) Get(key string) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.m[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !e.expires.IsZero() && !t.now().Before(e.expires) {
		delete(t.m, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes key.
func (t *TTLMap[V]) Delete(key string) {
	t.mu.Lock()
	delete(t.m, key)
	t.mu.Unlock()
}

// Sweep drops every expired entry and returns how many were removed.
func (t *TTLMap[V]) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	n := 0
	for k, e := range t.m {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(t.m, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (t *TTLMap[V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
