package pipeline

import "sync"

// dedupCache is a thread-safe LRU set of recently seen event IDs. The
// hub rebroadcasts some messages and a UDP listener plus a REST poller
// can observe the same observation twice; bounded memory keeps a
// long-running pipeline safe.
type dedupCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*dedupEntry
	head       *dedupEntry // most recently seen
	tail       *dedupEntry // least recently seen
}

type dedupEntry struct {
	key  string
	prev *dedupEntry
	next *dedupEntry
}

func newDedupCache(maxEntries int) *dedupCache {
	return &dedupCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*dedupEntry),
	}
}

// seen reports whether key was already recorded, recording it either way.
func (c *dedupCache) seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.moveToFront(e)
		return true
	}

	e := &dedupEntry{key: key}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return false
}

func (c *dedupCache) moveToFront(e *dedupEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *dedupCache) addToFront(e *dedupEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *dedupCache) remove(e *dedupEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *dedupCache) evictTail() {
	if c.tail == nil {
		return
	}
	evicted := c.tail
	c.remove(evicted)
	delete(c.entries, evicted.key)
}
