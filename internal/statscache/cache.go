// Package statscache keeps the latest stats snapshot per user so read paths
// do not recompute it from the full ride history on every request.
package statscache

import (
	"sync"
	"time"

	"bikeToWorkAPI/internal/stats"

	"github.com/google/uuid"
)

type Cache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]stats.UserStatsSnapshot
	opts    stats.Options
}

func New(opts stats.Options) *Cache {
	return &Cache{
		entries: make(map[uuid.UUID]stats.UserStatsSnapshot),
		opts:    opts,
	}
}

func (c *Cache) Options() stats.Options {
	return c.opts
}

// Refresh recomputes and stores the snapshot for userID.
func (c *Cache) Refresh(userID uuid.UUID, rides []stats.RideRecord, now time.Time) stats.UserStatsSnapshot {
	snap := stats.Snapshot(rides, now, c.opts)

	c.mu.Lock()
	c.entries[userID] = snap
	c.mu.Unlock()

	return snap
}

// Get returns the cached snapshot if it was computed on now's calendar day.
// Streaks and period counts move at midnight, so older entries are misses.
func (c *Cache) Get(userID uuid.UUID, now time.Time) (stats.UserStatsSnapshot, bool) {
	c.mu.RLock()
	snap, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok {
		return stats.UserStatsSnapshot{}, false
	}
	cal := c.opts.Calendar
	if !cal.Day(snap.ComputedAt).Equal(cal.Day(now)) {
		return stats.UserStatsSnapshot{}, false
	}
	return snap, true
}

func (c *Cache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
