package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/crucible/internal/feemodel"
	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/models"
)

func newTestVault() *models.Vault {
	return &models.Vault{
		BaseMint:    "So11111111111111111111111111111111111111112",
		ReceiptMint: "cSo1111111111111111111111111111111111111111",
		Symbol:      "SOL",
	}
}

func TestCurrentRate(t *testing.T) {
	e := NewEngine(feemodel.DefaultSchedule())

	t.Run("empty vault rates at 1.0", func(t *testing.T) {
		v := newTestVault()
		assert.Equal(t, fixedpoint.Scale, e.CurrentRate(v))
	})

	t.Run("rate reflects balance over supply", func(t *testing.T) {
		v := newTestVault()
		v.BaseBalance = 1_100_000
		v.ReceiptSupply = 1_000_000
		assert.Equal(t, int64(1_100_000), e.CurrentRate(v))
	})
}

func TestWrap(t *testing.T) {
	e := NewEngine(feemodel.DefaultSchedule())

	t.Run("scenario: 100 SOL at 0.5% wrap fee", func(t *testing.T) {
		v := newTestVault()
		res, err := e.Wrap(v, 100_000_000)
		require.NoError(t, err)

		assert.Equal(t, int64(500_000), res.FeeTaken)       // 0.5 SOL
		assert.Equal(t, int64(99_500_000), res.ReceiptMinted) // minted at rate 1.0
		assert.Equal(t, int64(400_000), res.VaultShare)
		assert.Equal(t, int64(100_000), res.TreasuryShare)
		assert.Equal(t, int64(99_900_000), v.BaseBalance) // net + vault fee share
		assert.Equal(t, int64(400_000), v.FeesAccrued)
		assert.Equal(t, int64(99_500_000), v.ReceiptSupply)

		// fee proceeds benefit existing holders: rate is now above 1.0
		assert.Greater(t, e.CurrentRate(v), fixedpoint.Scale)
	})

	t.Run("mint priced at pre-fee rate", func(t *testing.T) {
		v := newTestVault()
		v.BaseBalance = 2_000_000
		v.ReceiptSupply = 1_000_000 // rate 2.0

		res, err := e.Wrap(v, 1_000_000)
		require.NoError(t, err)
		// net 995000 minted at rate 2.0 -> 497500 receipts
		assert.Equal(t, int64(497_500), res.ReceiptMinted)
		assert.Equal(t, int64(2_000_000), res.RateBefore)
	})

	t.Run("paused vault rejects wrap", func(t *testing.T) {
		v := newTestVault()
		v.Paused = true
		_, err := e.Wrap(v, 1_000_000)
		assert.ErrorIs(t, err, ErrVaultPaused)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		v := newTestVault()
		_, err := e.Wrap(v, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = e.Wrap(v, -5)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestUnwrap(t *testing.T) {
	e := NewEngine(feemodel.DefaultSchedule())

	t.Run("burn returns value minus early fee", func(t *testing.T) {
		v := newTestVault()
		v.BaseBalance = 1_000_000
		v.ReceiptSupply = 1_000_000

		res, err := e.Unwrap(v, 1_000_000, 0)
		require.NoError(t, err)
		// gross 1000000, early fee 0.75% = 7500, net 992500
		assert.Equal(t, int64(992_500), res.BaseReturned)
		assert.Equal(t, int64(7_500), res.FeeTaken)
		assert.Zero(t, v.ReceiptSupply)
		// vault keeps its 80% fee share
		assert.Equal(t, int64(6_000), v.BaseBalance)
		assert.Equal(t, int64(6_000), v.FeesAccrued)
	})

	t.Run("mature fee after cooldown", func(t *testing.T) {
		v := newTestVault()
		v.BaseBalance = 1_000_000
		v.ReceiptSupply = 1_000_000

		res, err := e.Unwrap(v, 1_000_000, e.Fees().UnwrapCooldownSecs)
		require.NoError(t, err)
		assert.Equal(t, int64(3_000), res.FeeTaken)
	})

	t.Run("burning more than supply fails", func(t *testing.T) {
		v := newTestVault()
		v.BaseBalance = 1_000_000
		v.ReceiptSupply = 1_000_000
		_, err := e.Unwrap(v, 2_000_000, 0)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})
}

func TestRoundTripLaw(t *testing.T) {
	e := NewEngine(feemodel.DefaultSchedule())

	const x = int64(50_000_000)
	// X * (1 - 0.005) * (1 - 0.0075)
	expected := int64(float64(x) * 0.995 * 0.9925)

	t.Run("holds exactly against a deep vault", func(t *testing.T) {
		v := newTestVault()
		v.BaseBalance = 1_000_000_000_000
		v.ReceiptSupply = 1_000_000_000_000

		wrapRes, err := e.Wrap(v, x)
		require.NoError(t, err)
		unwrapRes, err := e.Unwrap(v, wrapRes.ReceiptMinted, 0)
		require.NoError(t, err)

		assert.InDelta(t, expected, unwrapRes.BaseReturned, 1)
	})

	t.Run("bounds the sole depositor", func(t *testing.T) {
		v := newTestVault()

		wrapRes, err := e.Wrap(v, x)
		require.NoError(t, err)
		unwrapRes, err := e.Unwrap(v, wrapRes.ReceiptMinted, 0)
		require.NoError(t, err)

		// The wrap fee's vault share is distributed across all receipt
		// holders. A sole depositor redeems their own share back, so the
		// fee product is a floor, never an exact value. A round trip can
		// still never profit.
		assert.GreaterOrEqual(t, unwrapRes.BaseReturned, expected)
		assert.Less(t, unwrapRes.BaseReturned, x)
		assert.GreaterOrEqual(t, v.BaseBalance, int64(0))
	})
}

func TestDepositArbitrageProfit(t *testing.T) {
	e := NewEngine(feemodel.DefaultSchedule())

	t.Run("scenario: arb deposit raises the rate for holders", func(t *testing.T) {
		v := newTestVault()
		_, err := e.Wrap(v, 100_000_000) // 99.5 receipts minted
		require.NoError(t, err)
		rateBefore := e.CurrentRate(v)

		res, err := e.DepositArbitrageProfit(v, 1_000_000)
		require.NoError(t, err)

		assert.Equal(t, int64(800_000), res.VaultShare)
		assert.Equal(t, int64(200_000), res.TreasuryShare)
		assert.Greater(t, res.RewardMinted, int64(0))
		// 1% of the deposit valued at the post-deposit rate
		assert.LessOrEqual(t, res.RewardMinted, int64(10_000))
		assert.Greater(t, res.RateAfter, rateBefore)
	})

	t.Run("invalid amount", func(t *testing.T) {
		v := newTestVault()
		_, err := e.DepositArbitrageProfit(v, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("paused vault rejects deposits", func(t *testing.T) {
		v := newTestVault()
		v.Paused = true
		_, err := e.DepositArbitrageProfit(v, 1_000)
		assert.ErrorIs(t, err, ErrVaultPaused)
	})
}

func TestRateMonotonicity(t *testing.T) {
	e := NewEngine(feemodel.DefaultSchedule())
	v := newTestVault()

	_, err := e.Wrap(v, 10_000_000)
	require.NoError(t, err)
	last := e.CurrentRate(v)

	steps := []func() error{
		func() error { _, err := e.Wrap(v, 3_333_337); return err },
		func() error { _, err := e.DepositArbitrageProfit(v, 500_001); return err },
		func() error { _, err := e.Unwrap(v, 1_000_003, 0); return err },
		func() error { _, err := e.Wrap(v, 777_777); return err },
		func() error { _, err := e.Unwrap(v, 2_500_000, 500_000); return err },
		func() error { _, err := e.DepositArbitrageProfit(v, 42); return err },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		rate := e.CurrentRate(v)
		assert.GreaterOrEqual(t, rate, last, "rate decreased at step %d", i)
		last = rate
	}
}
