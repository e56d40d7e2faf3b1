package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fundwise/fundwise/internal/utils"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// amountPrecision matches the NUMERIC(19, 4) columns amounts are stored in.
const amountPrecision = 4

type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

type cachedRates struct {
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

// ConverterImpl converts amounts using rates cached per base currency.
type ConverterImpl struct {
	client Client
	ttl    time.Duration
	clock  utils.Clock

	mu    sync.Mutex
	cache map[string]cachedRates

	hits   atomic.Int64
	misses atomic.Int64
}

func NewConverter(client Client, ttl time.Duration, clock utils.Clock) *ConverterImpl {
	return &ConverterImpl{
		client: client,
		ttl:    ttl,
		clock:  clock,
		cache:  map[string]cachedRates{},
	}
}

func (c *ConverterImpl) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	rates, err := c.rates(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no rate from %s to %s", ErrUnknownCurrency, from, to)
	}
	return amount.Mul(rate).Round(amountPrecision), nil
}

func (c *ConverterImpl) rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	c.mu.Lock()
	cached, ok := c.cache[base]
	c.mu.Unlock()
	if ok && c.clock.Now().Sub(cached.fetchedAt) < c.ttl {
		c.hits.Add(1)
		return cached.rates, nil
	}

	c.misses.Add(1)
	latest, err := c.client.Latest(ctx, base)
	if err != nil {
		return nil, err
	}
	log.Debugf("caching %d rates for %s", len(latest.Rates), base)

	c.mu.Lock()
	c.cache[base] = cachedRates{rates: latest.Rates, fetchedAt: c.clock.Now()}
	c.mu.Unlock()
	return latest.Rates, nil
}

// Stats reports cache usage for telemetry.
func (c *ConverterImpl) Stats() map[string]any {
	c.mu.Lock()
	bases := len(c.cache)
	c.mu.Unlock()
	return map[string]any{
		"cache_hits":   c.hits.Load(),
		"cache_misses": c.misses.Load(),
		"cached_bases": bases,
	}
}
