package oracle

import (
	"context"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedOracle is a read-through redis cache in front of another oracle.
// The TTL doubles as the staleness bound: a cached price older than TTL is
// simply gone, forcing a fresh fetch.
type CachedOracle struct {
	inner  PriceOracle
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedOracle wraps inner with a redis cache.
func NewCachedOracle(inner PriceOracle, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedOracle {
	return &CachedOracle{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "price_cache").Logger(),
	}
}

func priceKey(mint solana.PublicKey) string {
	return "price:" + mint.String()
}

// Price returns the cached price when fresh, otherwise fetches and caches.
// Cache failures degrade to a direct fetch; they never fail the lookup.
func (c *CachedOracle) Price(ctx context.Context, mint solana.PublicKey) (int64, error) {
	cached, err := c.client.Get(ctx, priceKey(mint)).Result()
	if err == nil {
		price, parseErr := strconv.ParseInt(cached, 10, 64)
		if parseErr == nil && price > 0 {
			return price, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn().Err(err).Str("mint", mint.String()).Msg("Price cache read failed")
	}

	price, err := c.inner.Price(ctx, mint)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, priceKey(mint), strconv.FormatInt(price, 10), c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("mint", mint.String()).Msg("Price cache write failed")
	}
	return price, nil
}
