// internal/service/aggregate/cache.go

package aggregate

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a bounded least-recently-used cache. Entries expire after ttl
// when ttl is positive and are evicted oldest first beyond capacity.
type LRU[V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type entry[V any] struct {
	key string
	val V
	exp time.Time
}

// NewLRU creates a new cache holding at most capacity entries
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU[V]{
		cap:  capacity,
		ttl:  ttl,
		lst:  list.New(),
		dict: make(map[string]*list.Element),
		now:  time.Now,
	}
}

// Get returns the value stored under key
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.dict[key]
	if !ok {
		return zero, false
	}

	it := e.Value.(entry[V])
	if c.ttl > 0 && !c.now().Before(it.exp) {
		c.lst.Remove(e)
		delete(c.dict, key)
		return zero, false
	}

	c.lst.MoveToFront(e)
	return it.val, true
}

// Set stores value under key, evicting the least recently used entries
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := entry[V]{key: key, val: value, exp: c.now().Add(c.ttl)}
	if e, ok := c.dict[key]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}

	c.dict[key] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(entry[V]).key)
		c.lst.Remove(back)
	}
}

// Len returns the number of stored entries
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// MonthStart truncates t to the first instant of its month in UTC
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey is the cache key of a window: both bounds truncated to their month
func MonthKey(start, end time.Time) string {
	return MonthStart(start).Format(time.RFC3339) + "|" + MonthStart(end).Format(time.RFC3339)
}
