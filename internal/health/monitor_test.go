package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/crucible/internal/feemodel"
	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/models"
)

func leveragedPosition(baseAmount, stableAmount, borrowed int64) *models.Position {
	return &models.Position{
		Kind:           models.KindLeveragedLP,
		BaseAmount:     baseAmount,
		StableAmount:   stableAmount,
		BorrowedStable: borrowed,
		LeverageFactor: models.LeverageFull,
		IsOpen:         true,
	}
}

func TestHealthFactor(t *testing.T) {
	m := NewMonitor(feemodel.DefaultSchedule())
	price := 200 * fixedpoint.Scale // $200 per base token

	t.Run("no borrow means max factor", func(t *testing.T) {
		pos := leveragedPosition(1_000_000, 200_000_000, 0)
		factor, err := m.HealthFactor(pos, price, 0)
		require.NoError(t, err)
		assert.Equal(t, MaxFactor, factor)
	})

	t.Run("collateral twice the borrow is 200", func(t *testing.T) {
		// 1 token at $200 + $200 stable = $400 collateral, $200 borrowed
		pos := leveragedPosition(1_000_000, 200_000_000, 200_000_000)
		factor, err := m.HealthFactor(pos, price, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(200), factor)
	})

	t.Run("accrued interest lowers the factor", func(t *testing.T) {
		pos := leveragedPosition(1_000_000, 200_000_000, 200_000_000)
		withInterest, err := m.HealthFactor(pos, price, 50_000_000)
		require.NoError(t, err)
		assert.Less(t, withInterest, int64(200))
	})
}

func TestIsLiquidatable(t *testing.T) {
	m := NewMonitor(feemodel.DefaultSchedule())

	// boundary: 119 eligible, 120 safe
	assert.True(t, m.IsLiquidatable(119))
	assert.False(t, m.IsLiquidatable(120))
	assert.False(t, m.IsLiquidatable(200))
}

func TestBandFor(t *testing.T) {
	m := NewMonitor(feemodel.DefaultSchedule())

	tests := []struct {
		factor int64
		want   Band
	}{
		{250, BandSafe},
		{200, BandSafe},
		{199, BandCaution},
		{150, BandCaution},
		{149, BandAtRisk},
		{120, BandAtRisk},
		{119, BandLiquidatable},
		{0, BandLiquidatable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.BandFor(tt.factor), "factor %d", tt.factor)
	}
}

func TestPlanLiquidation(t *testing.T) {
	m := NewMonitor(feemodel.DefaultSchedule())
	price := 100 * fixedpoint.Scale

	t.Run("healthy position is refused", func(t *testing.T) {
		pos := leveragedPosition(1_000_000, 100_000_000, 100_000_000)
		_, err := m.PlanLiquidation(pos, price, 0)
		assert.ErrorIs(t, err, ErrNotLiquidatable)
	})

	t.Run("underwater position is split fee, repay, remainder", func(t *testing.T) {
		// collateral $115, borrowed $100 -> factor 115
		pos := leveragedPosition(150_000, 100_000_000, 100_000_000)
		plan, err := m.PlanLiquidation(pos, price, 0)
		require.NoError(t, err)

		assert.Equal(t, int64(115), plan.HealthFactor)
		assert.Equal(t, int64(115_000_000), plan.CollateralValue)
		assert.Equal(t, int64(11_500_000), plan.Fee) // 10%
		// 103.5 left after fee covers the full 100 borrow
		assert.Equal(t, int64(100_000_000), plan.Repaid)
		assert.Equal(t, int64(3_500_000), plan.OwnerRemainder)
	})

	t.Run("deeply underwater repays what remains", func(t *testing.T) {
		// collateral $50, borrowed $100
		pos := leveragedPosition(0, 50_000_000, 100_000_000)
		plan, err := m.PlanLiquidation(pos, price, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(45_000_000), plan.Repaid) // all that is left after the fee
		assert.Zero(t, plan.OwnerRemainder)
	})
}
