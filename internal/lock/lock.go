// Package lock provides per-key critical sections for read-modify-write
// sequences on shared records such as ledgers and organization schedules.
package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// entry is a binary semaphore plus the number of callers holding or waiting
// for it, so idle keys can be dropped.
type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Keyed serializes callers that use the same key. The zero value is ready to use.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty Keyed locker.
func New() *Keyed {
	return &Keyed{}
}

// Lock acquires every key, in sorted order so that two callers locking
// overlapping key sets cannot deadlock. It returns a function releasing all
// of them. If ctx ends first, keys already held are released and ctx's error
// is returned.
func (k *Keyed) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = dedupe(keys)

	held := make([]string, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.release(held[i])
		}
	}

	for _, key := range keys {
		e := k.acquireRef(key)
		if err := e.sem.Acquire(ctx, 1); err != nil {
			k.dropRef(key)
			release()
			return nil, fmt.Errorf("waiting for %s: %w", key, err)
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// Len reports how many keys are currently held or awaited.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *Keyed) acquireRef(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.entries == nil {
		k.entries = make(map[string]*entry)
	}
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) dropRef(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := k.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *Keyed) release(key string) {
	k.mu.Lock()
	e := k.entries[key]
	k.mu.Unlock()
	e.sem.Release(1)
	k.dropRef(key)
}

func dedupe(keys []string) []string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		out = append(out, key)
	}
	return out
}
