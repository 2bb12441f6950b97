package toc

import (
	"container/list"
	"crypto/sha1"
	"encoding/hex"
)

// lruCache is a size-bounded parse-result cache. The original kept a
// process-wide unbounded map; this one is owned by a Manager and evicts the
// least recently used entry once full.
type lruCache struct {
	capacity int
	order    *list.List // front = most recent
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key   string
	value *Structure
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 32
	}
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

func (c *lruCache) get(key string) (*Structure, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *lruCache) put(key string, value *Structure) {
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).value = value
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *lruCache) len() int { return c.order.Len() }

// cacheKey is the composite key of one parse: content hash, file name, and
// options.
func cacheKey(content, fileName string, opts Options) string {
	h := sha1.New()
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(fileName))
	h.Write([]byte{0})
	h.Write([]byte(opts.key()))
	return hex.EncodeToString(h.Sum(nil))
}
