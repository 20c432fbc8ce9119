package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wnt/crucible/internal/metrics"
	"github.com/wnt/crucible/internal/utils"
)

const unhealthyCooldown = 30 * time.Second

// FailoverOracle spreads price lookups over a pool of oracle endpoints with
// round-robin selection, per-endpoint rate limiting, and cooldown on
// failure. A stale price from one endpoint fails over to the next.
type FailoverOracle struct {
	endpoints []*endpoint
	current   int
	mutex     sync.Mutex
	logger    zerolog.Logger
}

type endpoint struct {
	url           string
	oracle        *HTTPOracle
	limiter       *rate.Limiter
	healthy       bool
	cooldownUntil time.Time
	mutex         sync.RWMutex
}

// NewFailoverOracle creates a failover pool over the given endpoint URLs
func NewFailoverOracle(urls []string, logger zerolog.Logger) *FailoverOracle {
	endpoints := make([]*endpoint, len(urls))

	for i, url := range urls {
		endpoints[i] = &endpoint{
			url:    url,
			oracle: NewHTTPOracle(url, logger),
			// ~5 req/s per endpoint keeps us under typical oracle quotas
			limiter: rate.NewLimiter(rate.Limit(5.0), 10),
			healthy: true,
		}

		metrics.SetOracleEndpointHealth(url, true)
	}

	return &FailoverOracle{
		endpoints: endpoints,
		current:   rand.Intn(len(endpoints)),
		logger:    logger.With().Str("component", "oracle_pool").Logger(),
	}
}

// Price fetches the mint's price from the first available endpoint,
// failing over on endpoint errors.
func (f *FailoverOracle) Price(ctx context.Context, mint solana.PublicKey) (int64, error) {
	var lastErr error

	for attempt := 0; attempt < len(f.endpoints); attempt++ {
		ep := f.next()

		if !ep.available() {
			continue
		}

		if err := ep.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		price, err := ep.oracle.Price(ctx, mint)
		if err != nil {
			lastErr = err
			// Stale data is an endpoint problem, not a mint problem;
			// both cases cool the endpoint down and fail over.
			f.markUnhealthy(ep)
			f.logger.Warn().Err(err).Str("endpoint", ep.url).Msg("Oracle endpoint failed, trying next")
			continue
		}

		f.markHealthy(ep)
		return price, nil
	}

	if lastErr != nil {
		return 0, fmt.Errorf("all oracle endpoints failed: %w", lastErr)
	}
	return 0, errors.New("all oracle endpoints in cooldown")
}

// HealthyEndpointCount returns the number of endpoints currently usable
func (f *FailoverOracle) HealthyEndpointCount() int {
	return len(utils.Filter(f.endpoints, func(ep *endpoint) bool {
		return ep.available()
	}))
}

func (f *FailoverOracle) next() *endpoint {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	ep := f.endpoints[f.current]
	f.current = (f.current + 1) % len(f.endpoints)
	return ep
}

func (f *FailoverOracle) markUnhealthy(ep *endpoint) {
	ep.mutex.Lock()
	ep.healthy = false
	ep.cooldownUntil = time.Now().Add(unhealthyCooldown)
	ep.mutex.Unlock()

	metrics.SetOracleEndpointHealth(ep.url, false)
}

func (f *FailoverOracle) markHealthy(ep *endpoint) {
	ep.mutex.Lock()
	wasHealthy := ep.healthy
	ep.healthy = true
	ep.cooldownUntil = time.Time{}
	ep.mutex.Unlock()

	if !wasHealthy {
		metrics.SetOracleEndpointHealth(ep.url, true)
		f.logger.Info().Str("endpoint", ep.url).Msg("Oracle endpoint recovered")
	}
}

func (ep *endpoint) available() bool {
	ep.mutex.RLock()
	defer ep.mutex.RUnlock()
	return ep.healthy || time.Now().After(ep.cooldownUntil)
}
