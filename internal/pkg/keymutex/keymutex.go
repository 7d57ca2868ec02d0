// Package keymutex provides a mutex per key with reference counted entries,
// so that memory is released once no goroutine holds or waits for a key.
package keymutex

import (
	"context"
	"sync"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// KeyMutex serializes work on the same key while letting different keys
// proceed in parallel. The zero value is not usable; call New.
type KeyMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *KeyMutex {
	return &KeyMutex{entries: make(map[string]*entry)}
}

// Lock blocks until the key is acquired or ctx is done. The returned func
// releases the key and must be called exactly once.
func (k *KeyMutex) Lock(ctx context.Context, key string) (func(), error) {
	e := k.acquire(key)

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			k.release(key, e)
		}, nil
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}
}

// Len reports how many keys are currently held or awaited.
func (k *KeyMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *KeyMutex) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyMutex) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}
