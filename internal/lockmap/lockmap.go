// Package lockmap provides a mutex per key. Locks of different keys never
// block each other, and a key takes no memory while nobody holds its lock.
package lockmap

import "sync"

type entry struct {
	mut  sync.Mutex
	refs int
}

type Map[K comparable] struct {
	mut   sync.Mutex
	locks map[K]*entry
}

func New[K comparable]() *Map[K] {
	return &Map[K]{
		locks: make(map[K]*entry),
	}
}

func (lm *Map[K]) Lock(key K) {
	lm.mut.Lock()

	e, ok := lm.locks[key]
	if !ok {
		e = &entry{}
		lm.locks[key] = e
	}

	e.refs++
	lm.mut.Unlock()

	// Must not wait for the key while holding the map lock.
	e.mut.Lock()
}

func (lm *Map[K]) Unlock(key K) {
	lm.mut.Lock()
	defer lm.mut.Unlock()

	e, ok := lm.locks[key]
	if !ok {
		panic("lockmap: unlock of unlocked key")
	}

	e.mut.Unlock()

	if e.refs--; e.refs == 0 {
		delete(lm.locks, key)
	}
}

// Len returns the number of keys that are locked or waited for.
func (lm *Map[K]) Len() int {
	lm.mut.Lock()
	defer lm.mut.Unlock()

	return len(lm.locks)
}
