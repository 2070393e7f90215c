package backend

import (
	"log/slog"
	"sync"
	"time"
)

// Cache maps server URLs to their backends.
type Cache struct {
	mutex    sync.RWMutex
	backends map[string]*Backend
	logger   *slog.Logger
}

func NewCache(logger *slog.Logger) *Cache {
	return &Cache{
		backends: make(map[string]*Backend),
		logger:   logger,
	}
}

// Get returns the backend for rawURL, creating it on first use.
func (c *Cache) Get(rawURL string) (*Backend, error) {
	c.mutex.RLock()
	b, ok := c.backends[rawURL]
	c.mutex.RUnlock()

	if ok {
		return b, nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if b, ok = c.backends[rawURL]; ok {
		return b, nil
	}

	b, err := New(rawURL, c.logger)
	if err != nil {
		return nil, err
	}

	c.backends[rawURL] = b
	return b, nil
}

// Forget drops the backend of a removed server.
func (c *Cache) Forget(rawURL string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.backends, rawURL)
}

// ResponseTimes returns the moving average of every known backend.
func (c *Cache) ResponseTimes() map[string]time.Duration {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make(map[string]time.Duration, len(c.backends))
	for url, b := range c.backends {
		out[url] = b.EWMATime()
	}
	return out
}
