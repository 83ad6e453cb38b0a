package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
	timer   *time.Timer
	gen     uint64
}

type options struct {
	now        func() time.Time
	maxEntries int
}

// Option настраивает Memory.
type Option func(*options)

// WithClock подменяет источник времени, используется в тестах.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMaxEntries ограничивает число записей. При переполнении вытесняется
// запись, которая истекает раньше остальных.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// Memory — потокобезопасный кэш с TTL на каждую запись. Запись исчезает по
// собственному таймеру, а Get дополнительно сверяет срок с часами, поэтому
// истёкшая запись недоступна даже до срабатывания таймера.
type Memory[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]*entry[V]
	gen   uint64
	opts  options
}

// NewMemory создаёт пустой кэш.
func NewMemory[K comparable, V any](opts ...Option) *Memory[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory[K, V]{items: make(map[K]*entry[V]), opts: o}
}

// Put сохраняет значение и перезапускает таймер. ttl <= 0 хранит запись до
// явного удаления.
func (c *Memory[K, V]) Put(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.items[key]; ok {
		stopTimer(old)
	} else if c.opts.maxEntries > 0 && len(c.items) >= c.opts.maxEntries {
		c.evictSoonestLocked()
	}

	c.gen++
	e := &entry[V]{value: value, gen: c.gen}
	if ttl > 0 {
		e.expires = c.opts.now().Add(ttl)
		gen := c.gen
		e.timer = time.AfterFunc(ttl, func() { c.expire(key, gen) })
	}
	c.items[key] = e
}

// Get возвращает живое значение.
func (c *Memory[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.liveLocked(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Update атомарно изменяет живую запись, не трогая её TTL.
func (c *Memory[K, V]) Update(key K, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.liveLocked(key)
	if !ok {
		return false
	}
	e.value = fn(e.value)
	return true
}

// Take возвращает значение и удаляет запись одной операцией.
func (c *Memory[K, V]) Take(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.liveLocked(key)
	if !ok {
		var zero V
		return zero, false
	}
	stopTimer(e)
	delete(c.items, key)
	return e.value, true
}

// Delete удаляет запись. Отсутствие ключа не ошибка.
func (c *Memory[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		stopTimer(e)
		delete(c.items, key)
	}
}

// Len возвращает число живых записей.
func (c *Memory[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.opts.now()
	n := 0
	for key, e := range c.items {
		if expired(e, now) {
			stopTimer(e)
			delete(c.items, key)
			continue
		}
		n++
	}
	return n
}

// Close останавливает все таймеры и очищает кэш.
func (c *Memory[K, V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.items {
		stopTimer(e)
		delete(c.items, key)
	}
}

func (c *Memory[K, V]) expire(key K, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// таймер перезаписанной записи не должен удалить новое значение
	if e, ok := c.items[key]; ok && e.gen == gen {
		delete(c.items, key)
	}
}

func (c *Memory[K, V]) liveLocked(key K) (*entry[V], bool) {
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if expired(e, c.opts.now()) {
		stopTimer(e)
		delete(c.items, key)
		return nil, false
	}
	return e, true
}

func (c *Memory[K, V]) evictSoonestLocked() {
	var (
		victim K
		found  bool
		soon   time.Time
	)
	for key, e := range c.items {
		if !found || (!e.expires.IsZero() && (soon.IsZero() || e.expires.Before(soon))) {
			victim, soon, found = key, e.expires, true
		}
	}
	if found {
		stopTimer(c.items[victim])
		delete(c.items, victim)
	}
}

func expired[V any](e *entry[V], now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

func stopTimer[V any](e *entry[V]) {
	if e.timer != nil {
		e.timer.Stop()
	}
}
