// Package cache holds recently scraped responses in memory so repeated
// requests for the same URL within a client-chosen freshness window skip
// the fetch entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/research-gpt/researchgpt/models"
)

// entry pairs a cached response with its creation time.
type entry struct {
	response  *models.ScrapeResponse
	createdAt time.Time
}

// Cache is an in-memory response cache, safe for concurrent use.
//
// Entries live at most ttl regardless of what freshness window callers
// request; a background goroutine sweeps stale entries periodically.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]entry
	maxEntries int
	ttl        time.Duration
	done       chan struct{}
}

// New creates a Cache bounded to maxEntries with a 1 hour entry lifetime.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]entry),
		maxEntries: maxEntries,
		ttl:        time.Hour,
		done:       make(chan struct{}),
	}
	go c.sweepLoop(5 * time.Minute)
	return c
}

// Key derives the cache key for a URL scraped with the given output
// format and extract mode. Different processing options never share an
// entry.
func Key(url, outputFormat, extractMode string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(outputFormat))
	h.Write([]byte("|"))
	h.Write([]byte(extractMode))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached response for key if it is younger than maxAgeMs
// milliseconds. maxAgeMs <= 0 disables the lookup, so callers opt in to
// cached data per request.
func (c *Cache) Get(key string, maxAgeMs int) (*models.ScrapeResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	age := time.Since(e.createdAt)
	if age > time.Duration(maxAgeMs)*time.Millisecond || age > c.ttl {
		return nil, false
	}
	return e.response, true
}

// Set stores a response. At capacity one arbitrary entry is evicted first
// (map iteration order is random, which is good enough here).
func (c *Cache) Set(key string, resp *models.ScrapeResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = entry{response: resp, createdAt: time.Now()}
}

// Len returns the current number of cached responses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop terminates the background sweeper.
func (c *Cache) Stop() {
	close(c.done)
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.ttl)
			c.mu.Lock()
			for k, e := range c.store {
				if e.createdAt.Before(cutoff) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
