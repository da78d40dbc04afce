package ontology

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	ontology string
	term     string
}

func keyFor(ontology, term string) cacheKey {
	return cacheKey{ontology: NormalizeOntology(ontology), term: Normalize(term)}
}

func (k cacheKey) String() string {
	return k.ontology + "\x00" + k.term
}

// Store is a persistent term index consulted before the upstream resolver.
type Store interface {
	Resolver
	Put(ctx context.Context, terms ...Term) error
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits      int64
	Misses    int64
	StoreHits int64
	Upstream  int64
	Failures  int64
	Entries   int
}

// Cache memoises lookups of an upstream Resolver. Concurrent first lookups
// of the same (ontology, term) pair share one upstream call. Failed lookups
// are never cached.
//
// When a Store is configured, it is consulted after the in-memory map and
// terms found upstream are written back to it.
type Cache struct {
	next  Resolver
	store Store

	mu      sync.RWMutex
	entries map[cacheKey]Match
	group   singleflight.Group

	hits, misses, storeHits, upstream, failures atomic.Int64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithStore adds a persistent store between the memory cache and upstream.
func WithStore(s Store) CacheOption {
	return func(c *Cache) {
		c.store = s
	}
}

// NewCache wraps next with a memoising cache. next may be nil, in which
// case only the store (if any) is consulted and a miss there is reported
// as not found.
func NewCache(next Resolver, opts ...CacheOption) *Cache {
	c := &Cache{
		next:    next,
		entries: make(map[cacheKey]Match),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup implements Resolver.
func (c *Cache) Lookup(ctx context.Context, ontology, term string) (Match, error) {
	key := keyFor(ontology, term)

	c.mu.RLock()
	m, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		m.Term = term
		return m, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		return c.fill(ctx, key, ontology, term)
	})
	if err != nil {
		c.failures.Add(1)
		return Match{Ontology: key.ontology, Term: term}, err
	}
	m = v.(Match)
	m.Term = term
	return m, nil
}

func (c *Cache) fill(ctx context.Context, key cacheKey, ontology, term string) (Match, error) {
	// another flight may have completed between the read miss and here
	c.mu.RLock()
	m, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := c.resolve(ctx, ontology, term)
	if err != nil {
		return m, err
	}

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		m = existing
	} else {
		c.entries[key] = m
	}
	c.mu.Unlock()
	return m, nil
}

func (c *Cache) resolve(ctx context.Context, ontology, term string) (Match, error) {
	var storeErr error
	if c.store != nil {
		m, err := c.store.Lookup(ctx, ontology, term)
		if err == nil && m.Found {
			c.storeHits.Add(1)
			return m, nil
		}
		storeErr = err
	}

	if c.next == nil {
		if storeErr != nil {
			return Match{}, storeErr
		}
		return Match{Ontology: NormalizeOntology(ontology), Term: term}, nil
	}

	c.upstream.Add(1)
	m, err := c.next.Lookup(ctx, ontology, term)
	if err != nil {
		return m, err
	}
	if m.Found && c.store != nil {
		t := Term{Ontology: m.Ontology, Label: m.Label, ID: m.ID, IRI: m.IRI}
		if t.Label == "" {
			t.Label = term
		}
		// write-back errors are not lookup errors
		_ = c.store.Put(ctx, t)
	}
	return m, nil
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		StoreHits: c.storeHits.Load(),
		Upstream:  c.upstream.Load(),
		Failures:  c.failures.Load(),
		Entries:   n,
	}
}

// Reset drops every memoised entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]Match)
	c.mu.Unlock()
}

// IsServiceError reports whether err is (or wraps) a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
