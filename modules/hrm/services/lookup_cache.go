package services

import (
	"sync"
	"time"

	"github.com/iota-uz/sedar/pkg/formstate"
)

type cachedOptions struct {
	options []formstate.Option
	expires time.Time
}

// lookupCache indexes entries by backend resource so a write to a resource
// drops every list derived from it.
type lookupCache struct {
	mu            sync.RWMutex
	entries       map[string]cachedOptions
	resourceIndex map[string]map[string]struct{}
	now           func() time.Time
}

func newLookupCache() *lookupCache {
	return &lookupCache{
		entries:       make(map[string]cachedOptions),
		resourceIndex: make(map[string]map[string]struct{}),
		now:           time.Now,
	}
}

func (c *lookupCache) Get(key string) ([]formstate.Option, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.options, true
}

func (c *lookupCache) Set(resource, key string, options []formstate.Option, ttl time.Duration) {
	if resource == "" || key == "" || ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedOptions{options: options, expires: c.now().Add(ttl)}
	if _, ok := c.resourceIndex[resource]; !ok {
		c.resourceIndex[resource] = make(map[string]struct{})
	}
	c.resourceIndex[resource][key] = struct{}{}
}

func (c *lookupCache) InvalidateResource(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.resourceIndex[resource] {
		delete(c.entries, key)
	}
	delete(c.resourceIndex, resource)
}
