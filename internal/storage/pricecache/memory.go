package pricecache

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

type memItem struct {
	bars  []models.PriceBar
	price float64
	exp   time.Time
}

func (it memItem) expired(now time.Time) bool {
	return !it.exp.IsZero() && now.After(it.exp)
}

// MemoryCache is an in-process PriceCache used when Redis is disabled or unreachable.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memItem
	now   func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memItem), now: time.Now}
}

func (m *MemoryCache) get(key string) (memItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return memItem{}, false
	}
	if it.expired(m.now()) {
		delete(m.items, key)
		return memItem{}, false
	}
	return it, true
}

func (m *MemoryCache) set(key string, it memItem, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl > 0 {
		it.exp = m.now().Add(ttl)
	}
	m.items[key] = it
}

func (m *MemoryCache) GetSeries(_ context.Context, key string) ([]models.PriceBar, error) {
	it, ok := m.get(seriesKey(key))
	if !ok {
		return nil, nil
	}
	out := make([]models.PriceBar, len(it.bars))
	copy(out, it.bars)
	return out, nil
}

func (m *MemoryCache) SetSeries(_ context.Context, key string, bars []models.PriceBar, ttl time.Duration) error {
	stored := make([]models.PriceBar, len(bars))
	copy(stored, bars)
	m.set(seriesKey(key), memItem{bars: stored}, ttl)
	return nil
}

func (m *MemoryCache) GetPrice(_ context.Context, symbol string) (float64, bool, error) {
	it, ok := m.get(priceKey(symbol))
	if !ok {
		return 0, false, nil
	}
	return it.price, true, nil
}

func (m *MemoryCache) SetPrice(_ context.Context, symbol string, price float64, ttl time.Duration) error {
	m.set(priceKey(symbol), memItem{price: price}, ttl)
	return nil
}

func (m *MemoryCache) Close() error {
	return nil
}

var _ interfaces.PriceCache = (*MemoryCache)(nil)
