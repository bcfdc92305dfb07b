package pricecache

import (
	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
)

// New returns a Redis cache when enabled and reachable, otherwise an in-process cache.
func New(cfg common.CacheConfig, logger *common.Logger) interfaces.PriceCache {
	if !cfg.Enabled {
		logger.Info().Msg("Price cache: in-memory")
		return NewMemoryCache()
	}
	rc, err := NewRedisCache(cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Str("address", cfg.Address).Msg("Redis unavailable, falling back to in-memory price cache")
		return NewMemoryCache()
	}
	return rc
}
