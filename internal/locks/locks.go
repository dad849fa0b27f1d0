// Package locks provides per-key mutual exclusion for read-modify-write
// sequences on shared keyed state. Only one key is ever held at a time,
// which rules out lock ordering deadlocks.
package locks

import "sync"

// KeyedMutex serializes work per string key.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex constructs a KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for the given key.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e := k.entries[key]
	if e == nil {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for the given key.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e := k.entries[key]
	if e != nil {
		e.refs--
		if e.refs <= 0 {
			delete(k.entries, key)
		}
	}
	k.mu.Unlock()

	if e != nil {
		e.mu.Unlock()
	}
}
