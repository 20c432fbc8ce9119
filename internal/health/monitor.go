package health

import (
	"errors"
	"fmt"

	"github.com/wnt/crucible/internal/feemodel"
	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/models"
)

// ErrNotLiquidatable is returned when liquidation is requested for a
// position whose health is at or above the threshold. Liquidation is only a
// risk response, never a shortcut.
var ErrNotLiquidatable = errors.New("health monitor: position not eligible for liquidation")

// Health factor bands, in percent of breakeven (100 = 1.00x collateral
// coverage). The liquidation boundary is exclusive: a factor of exactly
// LiquidationThreshold is still safe.
const (
	SafeThreshold        int64 = 200
	CautionThreshold     int64 = 150
	AtRiskThreshold      int64 = 120
	LiquidationThreshold int64 = 120
)

// Band labels a health factor range for reporting.
type Band string

const (
	BandSafe         Band = "safe"
	BandCaution      Band = "caution"
	BandAtRisk       Band = "at_risk"
	BandLiquidatable Band = "liquidatable"
)

// MaxFactor is reported for positions with no outstanding borrow; they can
// never be liquidated.
const MaxFactor int64 = 10_000

// Monitor computes liquidation eligibility for leveraged positions.
type Monitor struct {
	fees feemodel.Schedule
}

// NewMonitor builds a monitor over the given fee schedule.
func NewMonitor(fees feemodel.Schedule) *Monitor {
	return &Monitor{fees: fees}
}

// CollateralValue prices both sides of a position in stable units at the
// supplied base price (fixed-point, USD per whole token).
func CollateralValue(pos *models.Position, basePrice int64) (int64, error) {
	baseValue, err := fixedpoint.MulScaled(pos.BaseAmount, basePrice)
	if err != nil {
		return 0, err
	}
	return baseValue + pos.StableAmount, nil
}

// HealthFactor returns collateral / borrowed in percent, so 100 means
// exactly breakeven. Positions without borrow report MaxFactor.
func (m *Monitor) HealthFactor(pos *models.Position, basePrice, accruedInterest int64) (int64, error) {
	borrowed := pos.BorrowedStable + accruedInterest
	if borrowed <= 0 {
		return MaxFactor, nil
	}
	collateral, err := CollateralValue(pos, basePrice)
	if err != nil {
		return 0, err
	}
	return fixedpoint.MulDiv(collateral, 100, borrowed)
}

// IsLiquidatable reports whether the health factor is strictly below the
// liquidation threshold.
func (m *Monitor) IsLiquidatable(factor int64) bool {
	return factor < LiquidationThreshold
}

// BandFor classifies a health factor.
func (m *Monitor) BandFor(factor int64) Band {
	switch {
	case factor >= SafeThreshold:
		return BandSafe
	case factor >= CautionThreshold:
		return BandCaution
	case factor >= AtRiskThreshold:
		return BandAtRisk
	default:
		return BandLiquidatable
	}
}

// Plan is the computed outcome of liquidating a position: what is seized,
// what the liquidation fee takes, what repays the pool, and what is
// returned to the original owner.
type Plan struct {
	HealthFactor    int64
	CollateralValue int64
	Fee             int64
	Repaid          int64
	OwnerRemainder  int64
}

// PlanLiquidation checks eligibility and computes the value split. The
// position record is not touched; callers apply the plan inside their own
// transaction scope.
func (m *Monitor) PlanLiquidation(pos *models.Position, basePrice, accruedInterest int64) (Plan, error) {
	factor, err := m.HealthFactor(pos, basePrice, accruedInterest)
	if err != nil {
		return Plan{}, err
	}
	if !m.IsLiquidatable(factor) {
		return Plan{}, fmt.Errorf("%w: health factor %d", ErrNotLiquidatable, factor)
	}

	collateral, err := CollateralValue(pos, basePrice)
	if err != nil {
		return Plan{}, err
	}
	fee, err := m.fees.LiquidationFee(collateral)
	if err != nil {
		return Plan{}, err
	}

	owed := pos.BorrowedStable + accruedInterest
	remaining := collateral - fee
	repaid := fixedpoint.Clamp(owed, remaining)
	remainder := remaining - repaid
	if remainder < 0 {
		remainder = 0
	}

	return Plan{
		HealthFactor:    factor,
		CollateralValue: collateral,
		Fee:             fee,
		Repaid:          repaid,
		OwnerRemainder:  remainder,
	}, nil
}
