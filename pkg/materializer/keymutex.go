package materializer

import "sync"

// keyMutex provides per-key locking. The check-then-create sequence for a
// dedup key is a critical section: two records resolving to the same key
// must not race into two creates. Entries are reference counted and removed
// once the last holder unlocks, so the map does not grow with the keyspace.
type keyMutex struct {
	mu      sync.Mutex
	entries map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{entries: make(map[string]*keyLock)}
}

// Lock acquires the lock for key and returns the matching unlock function.
func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyLock{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
