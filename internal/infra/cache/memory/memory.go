package memory

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// Кеш в памяти процесса — взаимозаменяем с Redis-реализацией.
// Однонодовый вариант: теряется на рестарте, TTL свой, фоновая чистка
// раз в минуту выметает протухшее, чтобы map не рос бесконечно.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]entry
	logger  *log.Logger
	stop    chan struct{}
	stopped sync.Once
}

type entry struct {
	val       []byte
	expiresAt time.Time // zero — без срока
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

const sweepInterval = 60 * time.Second

func New(logger *log.Logger) *Cache {
	c := &Cache{
		items:  make(map[string]entry),
		logger: logger,
		stop:   make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

func (c *Cache) sweepLoop() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-t.C:
			c.mu.Lock()
			removed := 0
			for k, e := range c.items {
				if e.expired(now) {
					delete(c.items, k)
					removed++
				}
			}
			c.mu.Unlock()
			if removed > 0 {
				c.logger.Printf("sweep: removed %d expired entries", removed)
			}
		}
	}
}

// Get: протухшая запись — тоже промах, даже если чистка до неё не дошла.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if e.expired(time.Now()) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, nil
	}
	out := make([]byte, len(e.val))
	copy(out, e.val)
	return out, nil
}

func (c *Cache) Set(_ context.Context, key string, val []byte, ttlSeconds int) error {
	e := entry{val: append([]byte(nil), val...)}
	if ttlSeconds > 0 {
		e.expiresAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	}
	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *Cache) DelByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	b, err := c.Get(ctx, key)
	return b != nil, err
}

func (c *Cache) SetNX(ctx context.Context, key string, val []byte, ttlSeconds int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok && !e.expired(time.Now()) {
		return false, nil
	}
	e := entry{val: append([]byte(nil), val...)}
	if ttlSeconds > 0 {
		e.expiresAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	}
	c.items[key] = e
	return true, nil
}

func (c *Cache) Ping(context.Context) error { return nil }

func (c *Cache) Close() {
	c.stopped.Do(func() { close(c.stop) })
}

// Len — количество живых записей (для тестов).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
