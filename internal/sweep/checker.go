package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/health"
	"github.com/wnt/crucible/internal/lending"
	"github.com/wnt/crucible/internal/metrics"
	"github.com/wnt/crucible/internal/models"
	"github.com/wnt/crucible/internal/oracle"
	"github.com/wnt/crucible/internal/store"
)

// Checker scores a position's current health factor from live state: the
// position record, the pool's accrued interest, and the oracle price of the
// vault's base asset.
type Checker struct {
	store   *store.Store
	monitor *health.Monitor
	pool    *lending.Pool
	prices  oracle.PriceOracle
	poolID  uint
	now     func() time.Time
}

// NewChecker builds a health checker over the shared store and oracle.
func NewChecker(s *store.Store, monitor *health.Monitor, pool *lending.Pool, prices oracle.PriceOracle, poolID uint) *Checker {
	return &Checker{
		store:   s,
		monitor: monitor,
		pool:    pool,
		prices:  prices,
		poolID:  poolID,
		now:     time.Now,
	}
}

// Result is one health observation of an open position.
type Result struct {
	Position     *models.Position
	HealthFactor int64
	Band         health.Band
	Liquidatable bool
}

// Check scores the position. A closed position returns open=false and no
// result; callers drop it from the queue.
func (c *Checker) Check(ctx context.Context, positionID uint) (Result, bool, error) {
	pos, err := c.store.GetPosition(ctx, positionID)
	if err != nil {
		return Result{}, false, err
	}
	if !pos.IsOpen || pos.BorrowedStable <= 0 {
		return Result{}, false, nil
	}

	v, err := c.store.GetVault(ctx, pos.VaultID)
	if err != nil {
		return Result{}, false, err
	}
	mint, err := solana.PublicKeyFromBase58(v.BaseMint)
	if err != nil {
		return Result{}, false, fmt.Errorf("invalid base mint on vault %d: %w", pos.VaultID, err)
	}
	price, err := c.prices.Price(ctx, mint)
	if err != nil {
		return Result{}, false, err
	}

	lp, err := c.store.GetPool(ctx, c.poolID)
	if err != nil {
		return Result{}, false, err
	}
	metrics.PoolUtilization.Set(fixedpoint.ToFloat(c.pool.Utilization(lp)))
	elapsed := int64(c.now().Sub(pos.OpenedAt).Seconds())
	interest, err := c.pool.AccrueInterest(lp, pos.BorrowedStable, elapsed)
	if err != nil {
		return Result{}, false, err
	}

	factor, err := c.monitor.HealthFactor(pos, price, interest)
	if err != nil {
		return Result{}, false, err
	}

	return Result{
		Position:     pos,
		HealthFactor: factor,
		Band:         c.monitor.BandFor(factor),
		Liquidatable: c.monitor.IsLiquidatable(factor),
	}, true, nil
}
