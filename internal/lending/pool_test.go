package lending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/models"
)

func newTestPool() *models.LendingPool {
	return &models.LendingPool{
		StableMint:               "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		BorrowRateBps:            800, // 8% APR
		ProtocolFeeOnInterestBps: 1_000,
	}
}

func TestSupplyAndWithdraw(t *testing.T) {
	p := NewPool()
	lp := newTestPool()

	require.NoError(t, p.Supply(lp, 1_000))
	assert.Equal(t, int64(1_000), lp.TotalLiquidity)

	t.Run("non-positive supply rejected", func(t *testing.T) {
		assert.ErrorIs(t, p.Supply(lp, 0), ErrInvalidAmount)
		assert.ErrorIs(t, p.Supply(lp, -1), ErrInvalidAmount)
	})

	t.Run("cannot withdraw borrowed funds", func(t *testing.T) {
		_, err := p.Borrow(lp, 900)
		require.NoError(t, err)
		assert.ErrorIs(t, p.Withdraw(lp, 200), ErrInsufficientLiquidity)
		require.NoError(t, p.Withdraw(lp, 100))
		assert.Equal(t, int64(900), lp.TotalLiquidity)
	})
}

func TestBorrow(t *testing.T) {
	p := NewPool()

	t.Run("scenario: 90% utilization blocks a 200 borrow", func(t *testing.T) {
		lp := newTestPool()
		require.NoError(t, p.Supply(lp, 1_000))
		_, err := p.Borrow(lp, 900)
		require.NoError(t, err)

		assert.Equal(t, int64(900_000), p.Utilization(lp)) // 0.9 scaled

		_, err = p.Borrow(lp, 200)
		assert.ErrorIs(t, err, ErrInsufficientLiquidity)

		// pool solvency held
		assert.LessOrEqual(t, lp.TotalBorrowed, lp.TotalLiquidity)
	})

	t.Run("borrow reports the rate taken", func(t *testing.T) {
		lp := newTestPool()
		require.NoError(t, p.Supply(lp, 1_000))
		res, err := p.Borrow(lp, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(100), res.Borrowed)
		assert.Equal(t, int64(800), res.RateBps)
	})
}

func TestRepay(t *testing.T) {
	p := NewPool()
	lp := newTestPool()
	require.NoError(t, p.Supply(lp, 1_000))
	_, err := p.Borrow(lp, 500)
	require.NoError(t, err)

	t.Run("over-repayment rejected", func(t *testing.T) {
		assert.ErrorIs(t, p.Repay(lp, 600), ErrOverRepayment)
	})

	require.NoError(t, p.Repay(lp, 500))
	assert.Zero(t, lp.TotalBorrowed)
}

func TestWriteOff(t *testing.T) {
	p := NewPool()
	lp := newTestPool()
	require.NoError(t, p.Supply(lp, 1_000))
	_, err := p.Borrow(lp, 500)
	require.NoError(t, err)

	t.Run("cannot write off more than outstanding", func(t *testing.T) {
		assert.ErrorIs(t, p.WriteOff(lp, 600), ErrOverRepayment)
	})

	// Partial repay, rest written off against lender liquidity
	require.NoError(t, p.Repay(lp, 400))
	require.NoError(t, p.WriteOff(lp, 100))
	assert.Zero(t, lp.TotalBorrowed)
	assert.Equal(t, int64(900), lp.TotalLiquidity)
	assert.LessOrEqual(t, lp.TotalBorrowed, lp.TotalLiquidity)
}

func TestAccrueInterest(t *testing.T) {
	p := NewPool()
	lp := newTestPool()

	t.Run("one year of simple interest", func(t *testing.T) {
		interest, err := p.AccrueInterest(lp, 1_000_000, SecondsPerYear)
		require.NoError(t, err)
		assert.Equal(t, int64(80_000), interest) // 8%
	})

	t.Run("half a year halves it", func(t *testing.T) {
		interest, err := p.AccrueInterest(lp, 1_000_000, SecondsPerYear/2)
		require.NoError(t, err)
		assert.Equal(t, int64(40_000), interest)
	})

	t.Run("zero elapsed accrues nothing", func(t *testing.T) {
		interest, err := p.AccrueInterest(lp, 1_000_000, 0)
		require.NoError(t, err)
		assert.Zero(t, interest)
	})
}

func TestSplitInterest(t *testing.T) {
	p := NewPool()
	lp := newTestPool()

	lender, protocol, err := p.SplitInterest(lp, 1_000)
	require.NoError(t, err)
	assert.Equal(t, int64(900), lender)
	assert.Equal(t, int64(100), protocol)
	assert.Equal(t, int64(1_000), lender+protocol)
}

func TestSupplyAPY(t *testing.T) {
	p := NewPool()
	lp := newTestPool()

	t.Run("empty pool yields zero", func(t *testing.T) {
		apy, err := p.SupplyAPY(lp)
		require.NoError(t, err)
		assert.Zero(t, apy)
	})

	t.Run("lenders earn on utilized fraction minus protocol cut", func(t *testing.T) {
		require.NoError(t, p.Supply(lp, 1_000))
		_, err := p.Borrow(lp, 500)
		require.NoError(t, err)

		apy, err := p.SupplyAPY(lp)
		require.NoError(t, err)
		// 8% * 0.5 * 0.9 = 3.6%
		assert.InDelta(t, 0.036, fixedpoint.ToFloat(apy), 0.0001)
	})
}
