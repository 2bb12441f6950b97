package toc

import "sync"

// Manager caches parses and notifies registered listeners when a parse
// produces a structure for new content.
type Manager struct {
	mu        sync.Mutex
	cache     *lruCache
	listeners map[int]func(*Structure)
	nextID    int
	parses    int
}

// NewManager creates a Manager with a cache bounded to capacity entries.
func NewManager(capacity int) *Manager {
	return &Manager{
		cache:     newLRUCache(capacity),
		listeners: make(map[int]func(*Structure)),
	}
}

// Parse returns the outline for (content, fileName, opts), from cache when
// possible. Cache misses run the parser and notify listeners.
func (m *Manager) Parse(content, fileName string, opts Options) *Structure {
	key := cacheKey(content, fileName, opts)

	m.mu.Lock()
	if s, ok := m.cache.get(key); ok {
		m.mu.Unlock()
		return s
	}
	m.mu.Unlock()

	s := ParseContent(content, fileName, opts)

	m.mu.Lock()
	m.cache.put(key, s)
	m.parses++
	fns := make([]func(*Structure), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
	return s
}

// AddChangeListener registers fn for future parses and returns a dispose
// function that removes it.
func (m *Manager) AddChangeListener(fn func(*Structure)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// ParseCount reports how many cache misses have run the parser. Exposed for
// tests asserting cache hits.
func (m *Manager) ParseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parses
}

// CacheLen reports the current number of cached structures.
func (m *Manager) CacheLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.len()
}
