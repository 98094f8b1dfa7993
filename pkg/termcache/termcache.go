// SPDX-License-Identifier: Apache-2.0

// Package termcache provides the process-wide term cache described in the
// concurrency model: a bounded LRU of (text, type, lang, datatype) -> uuid
// that lets batch ingest skip the existence probe on a hit. A miss simply
// falls back to deterministic UUID computation, so the cache never needs
// to be kept consistent with the database for correctness -- it is a pure
// performance layer.
package termcache

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vital-ai/vital-graph-sub011/pkg/term"
)

const DefaultCapacity = 1_000_000

// Cache is a bounded, concurrency-safe LRU mapping term keys to their
// already-known UUIDs.
type Cache struct {
	lru *lru.Cache[term.Key, uuid.UUID]
}

// New creates a Cache bounded to capacity entries. golang-lru's Cache is
// internally locked, so Cache is safe for concurrent use without any
// additional synchronization.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[term.Key, uuid.UUID](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached UUID for key, if present.
func (c *Cache) Get(key term.Key) (uuid.UUID, bool) {
	return c.lru.Get(key)
}

// Put records the UUID for key, evicting the least recently used entry if
// the cache is at capacity.
func (c *Cache) Put(key term.Key, id uuid.UUID) {
	c.lru.Add(key, id)
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge empties the cache. Used at space-drop time so a deleted space's
// terms cannot leak a stale hit into a newly created space that reuses
// the same space id.
func (c *Cache) Purge() {
	c.lru.Purge()
}
