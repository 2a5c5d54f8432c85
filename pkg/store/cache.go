package store

import (
	"sync"

	"github.com/engramdev/engram/pkg/memory"
)

// DefaultCacheSize bounds the record cache when no size is configured.
const DefaultCacheSize = 1000

// recordCache is a bounded insertion-ordered cache. When full it evicts
// the oldest inserted entry; updating an existing entry keeps its slot.
// It is purely a latency optimization, the record store stays the source
// of truth.
type recordCache struct {
	mu       sync.Mutex
	capacity int
	records  map[string]memory.Record
	order    []string
}

func newRecordCache(capacity int) *recordCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &recordCache{
		capacity: capacity,
		records:  make(map[string]memory.Record, capacity),
	}
}

func (c *recordCache) Get(id string) (memory.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[id]
	return r, ok
}

func (c *recordCache) Put(record memory.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[record.ID]; exists {
		c.records[record.ID] = record
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.records, oldest)
	}
	c.records[record.ID] = record
	c.order = append(c.order, record.ID)
}

func (c *recordCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[id]; !exists {
		return
	}
	delete(c.records, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *recordCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
