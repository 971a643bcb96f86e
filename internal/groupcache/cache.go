// Package groupcache caches group metadata fetched from the transport.
// Group JIDs are globally unique, so one cache serves all sessions.
package groupcache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/wafleet/wafleet/internal/transport"
)

// Cache is a bounded, time-expiring cache of group descriptors.
type Cache struct {
	lru *lru.LRU[string, *transport.GroupMetadata]
}

// New creates a cache holding at most size entries for at most ttl.
func New(size int, ttl time.Duration) *Cache {
	return &Cache{
		lru: lru.NewLRU[string, *transport.GroupMetadata](size, nil, ttl),
	}
}

// Get returns the cached metadata for a group, or nil on a miss.
func (c *Cache) Get(groupJID string) *transport.GroupMetadata {
	meta, ok := c.lru.Get(groupJID)
	if !ok {
		return nil
	}
	return meta
}

// Set stores metadata for a group. Fetch failures are never cached, so a
// later lookup retries the transport.
func (c *Cache) Set(groupJID string, meta *transport.GroupMetadata) {
	if meta == nil {
		return
	}
	c.lru.Add(groupJID, meta)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
