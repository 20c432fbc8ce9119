package feemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScheduleValidates(t *testing.T) {
	require.NoError(t, DefaultSchedule().Validate())
}

func TestScheduleValidate(t *testing.T) {
	t.Run("rate above 10000 bps", func(t *testing.T) {
		s := DefaultSchedule()
		s.WrapBps = 10_001
		assert.ErrorIs(t, s.Validate(), ErrInvalidRate)
	})

	t.Run("negative rate", func(t *testing.T) {
		s := DefaultSchedule()
		s.LiquidationBps = -1
		assert.ErrorIs(t, s.Validate(), ErrInvalidRate)
	})

	t.Run("split must total 10000", func(t *testing.T) {
		s := DefaultSchedule()
		s.VaultShareBps = 7_000
		assert.ErrorIs(t, s.Validate(), ErrInvalidRate)
	})
}

func TestWrapFee(t *testing.T) {
	s := DefaultSchedule()

	// 100 SOL in 1e6 units at 0.5% -> fee 0.5 SOL
	net, fee, err := s.WrapFee(100_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), fee)
	assert.Equal(t, int64(99_500_000), net)
}

func TestUnwrapFee(t *testing.T) {
	s := DefaultSchedule()

	t.Run("early withdrawal uses the higher rate", func(t *testing.T) {
		net, fee, err := s.UnwrapFee(1_000_000, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(7_500), fee)
		assert.Equal(t, int64(992_500), net)
	})

	t.Run("mature withdrawal uses the lower rate", func(t *testing.T) {
		net, fee, err := s.UnwrapFee(1_000_000, s.UnwrapCooldownSecs)
		require.NoError(t, err)
		assert.Equal(t, int64(3_000), fee)
		assert.Equal(t, int64(997_000), net)
	})

	t.Run("cooldown boundary is exclusive", func(t *testing.T) {
		_, earlyFee, err := s.UnwrapFee(1_000_000, s.UnwrapCooldownSecs-1)
		require.NoError(t, err)
		assert.Equal(t, int64(7_500), earlyFee)
	})
}

func TestSplitFee(t *testing.T) {
	s := DefaultSchedule()

	vault, treasury, err := s.SplitFee(1_000)
	require.NoError(t, err)
	assert.Equal(t, int64(800), vault)
	assert.Equal(t, int64(200), treasury)

	t.Run("no unit lost to rounding", func(t *testing.T) {
		vault, treasury, err := s.SplitFee(999)
		require.NoError(t, err)
		assert.Equal(t, int64(999), vault+treasury)
	})

	t.Run("zero fee splits to nothing", func(t *testing.T) {
		vault, treasury, err := s.SplitFee(0)
		require.NoError(t, err)
		assert.Zero(t, vault)
		assert.Zero(t, treasury)
	})
}

func TestLPCloseFee(t *testing.T) {
	s := DefaultSchedule()

	t.Run("principal and yield charged separately", func(t *testing.T) {
		principalFee, yieldFee, err := s.LPCloseFee(10_000_000, 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, int64(200_000), principalFee) // 2%
		assert.Equal(t, int64(100_000), yieldFee)     // 10%
	})

	t.Run("no yield fee on a losing position", func(t *testing.T) {
		_, yieldFee, err := s.LPCloseFee(10_000_000, -500_000)
		require.NoError(t, err)
		assert.Zero(t, yieldFee)
	})
}

func TestLiquidationFee(t *testing.T) {
	s := DefaultSchedule()
	fee, err := s.LiquidationFee(20_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), fee)
}

func TestFeeClamping(t *testing.T) {
	s := Schedule{WrapBps: 10_000, VaultShareBps: 8_000, TreasuryShareBps: 2_000}
	net, fee, err := s.WrapFee(100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), fee)
	assert.Zero(t, net)
}

func TestArbReward(t *testing.T) {
	s := DefaultSchedule()
	reward, err := s.ArbReward(1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), reward) // 1%
}
