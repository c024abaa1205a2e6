package finance

import (
	"sync"
	"time"
)

// chartCacheEntry holds a rendered chart and the report it was drawn from.
type chartCacheEntry struct {
	createdAt time.Time
	image     []byte
	report    *KellyReport
}

type chartCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]chartCacheEntry
	now     func() time.Time
}

func newChartCache(ttl time.Duration) *chartCache {
	return &chartCache{ttl: ttl, entries: map[string]chartCacheEntry{}, now: time.Now}
}

func (c *chartCache) get(key string) ([]byte, *KellyReport, bool) {
	if c.ttl <= 0 {
		return nil, nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, nil, false
	}
	if !c.now().Before(entry.createdAt.Add(c.ttl)) {
		delete(c.entries, key)
		return nil, nil, false
	}
	img := make([]byte, len(entry.image))
	copy(img, entry.image)
	return img, entry.report, true
}

func (c *chartCache) set(key string, img []byte, report *KellyReport) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = chartCacheEntry{createdAt: c.now(), image: img, report: report}
	c.mu.Unlock()
}
