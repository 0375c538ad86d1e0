package currency

import (
	"time"

	"github.com/shopspring/decimal"

	"countinghelper/internal/cache"
)

// CachedProvider memoizes rate lookups from a slower source, typically a
// future live-rate API. Errors are not cached, so transient failures retry on
// the next lookup.
type CachedProvider struct {
	source RateProvider
	rates  *cache.LRU[decimal.Decimal]
}

// NewCachedProvider wraps source with an LRU of maxSize pairs, each cached
// for ttl.
func NewCachedProvider(source RateProvider, maxSize int, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		source: source,
		rates:  cache.NewLRU[decimal.Decimal](maxSize, ttl),
	}
}

// Rate implements RateProvider.
func (p *CachedProvider) Rate(from, to string) (decimal.Decimal, error) {
	key := from + "/" + to
	if rate, ok := p.rates.Get(key); ok {
		return rate, nil
	}
	rate, err := p.source.Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	p.rates.Set(key, rate)
	return rate, nil
}
