package store

import "sync"

// KeyMutex serializes read-modify-write cycles per logical key. The
// engines hold the key's lock across index load, mutation, and Put so
// folder insertion stays idempotent under concurrent callers.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyMutex creates an empty named-mutex set.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyMutex) Lock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
}

// Unlock releases the mutex for key.
func (k *KeyMutex) Unlock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	k.mu.Unlock()
	if ok {
		l.Unlock()
	}
}
