// Copyright 2026 The Synapse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultCacheTTL bounds how long a query result may be served from cache.
const DefaultCacheTTL = 5 * time.Minute

// Cache memoizes full query results keyed by a normalized query signature.
// Entries expire after the configured TTL; an absent key is a pure miss,
// never an error. Writes are best-effort.
type Cache struct {
	cache *ristretto.Cache[string, *Result]
	ttl   time.Duration
}

// NewCache creates a query result cache with the given TTL.
// A non-positive TTL falls back to DefaultCacheTTL.
func NewCache(ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *Result]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{cache: cache, ttl: ttl}, nil
}

// Key builds the normalized cache key from query text, classified intent and
// result-count bound.
func Key(query string, intent Intent, limit int) string {
	normalized := strings.Join(tokenize(query), " ")
	return normalized + "|" + intent.String() + "|" + strconv.Itoa(limit)
}

// Get returns the cached result for a key, or nil on a miss.
func (c *Cache) Get(key string) *Result {
	result, ok := c.cache.Get(key)
	if !ok {
		return nil
	}
	return result
}

// Put stores a result under the key for the cache TTL. Best-effort: an
// evicted or dropped write is silently ignored.
func (c *Cache) Put(key string, result *Result) {
	c.cache.SetWithTTL(key, result, 1, c.ttl)
}

// Wait blocks until buffered writes have been applied. Test use only.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Ping reports cache availability.
func (c *Cache) Ping(_ context.Context) error {
	return nil
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.cache.Close()
}
