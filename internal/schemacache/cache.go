// Package schemacache memoizes parsed headers. A Schema is immutable once
// parsed, so one cached value can back any number of codecs, including codecs
// on different goroutines.
package schemacache

import (
	"errors"

	"github.com/dgraph-io/ristretto"

	"github.com/JonMunkholm/rowimport/internal/rowdata"
)

// Config sizes the cache.
type Config struct {
	// MaxEntries is the number of schemas kept (cost 1 each).
	MaxEntries int64

	// Metrics enables ristretto hit/miss counters.
	Metrics bool
}

// Cache is a concurrency-safe header to Schema cache. Failed parses are not
// cached.
type Cache struct {
	c *ristretto.Cache
}

// New builds a cache for cfg.MaxEntries schemas.
func New(cfg Config) (*Cache, error) {
	if cfg.MaxEntries <= 0 {
		return nil, errors.New("schemacache: MaxEntries must be positive")
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Parse returns the schema for header split on delimiter, parsing it on a
// miss. Results match rowdata.ParseSchema exactly.
func (c *Cache) Parse(header, delimiter string) (rowdata.Schema, error) {
	key := cacheKey(header, delimiter)
	if v, ok := c.c.Get(key); ok {
		if s, ok := v.(rowdata.Schema); ok {
			return s, nil
		}
		c.c.Del(key)
	}

	s, err := rowdata.ParseSchema(header, delimiter)
	if err != nil {
		return rowdata.Schema{}, err
	}
	c.c.Set(key, s, 1)
	return s, nil
}

// Wait blocks until buffered writes are visible to Parse.
func (c *Cache) Wait() { c.c.Wait() }

// Metrics returns ristretto's counters, nil unless Config.Metrics was set.
func (c *Cache) Metrics() *ristretto.Metrics { return c.c.Metrics }

// Close stops the cache's goroutines.
func (c *Cache) Close() {
	c.c.Wait()
	c.c.Close()
}

// cacheKey joins delimiter and header with a NUL separator.
func cacheKey(header, delimiter string) string {
	return delimiter + "\x00" + header
}
