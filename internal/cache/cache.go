// Package cache keeps a bounded in-memory history of vehicle snapshots so
// the HTTP API can serve the recent track without touching the flight log
// backend. Latency matters here; reads must never wait on storage.
package cache

import (
	"sync"

	"github.com/m4a3/weathervane/internal/sim"
)

// TrackCache is a fixed-capacity ring of the most recent snapshots.
type TrackCache struct {
	m        sync.Mutex
	buf      []sim.Snapshot
	head     int
	size     int
	capacity int
}

// NewTrackCache creates a cache holding up to capacity snapshots.
func NewTrackCache(capacity int) *TrackCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &TrackCache{
		buf:      make([]sim.Snapshot, capacity),
		capacity: capacity,
	}
}

// Add appends a snapshot, evicting the oldest when full.
func (c *TrackCache) Add(st sim.Snapshot) {
	c.m.Lock()
	defer c.m.Unlock()
	c.buf[c.head] = st
	c.head = (c.head + 1) % c.capacity
	if c.size < c.capacity {
		c.size++
	}
}

// Recent returns up to n snapshots, oldest first. n <= 0 returns everything
// cached.
func (c *TrackCache) Recent(n int) []sim.Snapshot {
	c.m.Lock()
	defer c.m.Unlock()

	if n <= 0 || n > c.size {
		n = c.size
	}
	out := make([]sim.Snapshot, 0, n)
	start := c.head - n
	if start < 0 {
		start += c.capacity
	}
	for i := 0; i < n; i++ {
		out = append(out, c.buf[(start+i)%c.capacity])
	}
	return out
}

// Len returns the number of cached snapshots.
func (c *TrackCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.size
}

// Reset empties the cache.
func (c *TrackCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.head = 0
	c.size = 0
}

// SafeCounter is a thread-safe counter.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
