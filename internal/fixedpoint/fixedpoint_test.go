package fixedpoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv(t *testing.T) {
	t.Run("floors toward zero", func(t *testing.T) {
		got, err := MulDiv(10, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got)
	})

	t.Run("large intermediates do not overflow", func(t *testing.T) {
		// amount near int64 max times a rate would overflow a naive
		// int64 multiply
		got, err := MulDiv(math.MaxInt64/2, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64/2), got)
	})

	t.Run("overflowing result is rejected", func(t *testing.T) {
		_, err := MulDiv(math.MaxInt64, 2, 1)
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("division by zero is rejected", func(t *testing.T) {
		_, err := MulDiv(1, 1, 0)
		assert.Error(t, err)
	})
}

func TestMulBps(t *testing.T) {
	// 0.5% of 100 SOL (in lamport-style 1e6 units)
	got, err := MulBps(100_000_000, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), got)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, Scale, Ratio(5, 5))
	assert.Equal(t, int64(0), Ratio(5, 0))
	// 99.5 / 100 = 0.995
	assert.Equal(t, int64(995_000), Ratio(995, 1000))
}

func TestValidBps(t *testing.T) {
	assert.True(t, ValidBps(0))
	assert.True(t, ValidBps(10_000))
	assert.False(t, ValidBps(-1))
	assert.False(t, ValidBps(10_001))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, int64(10), Clamp(15, 10))
	assert.Equal(t, int64(5), Clamp(5, 10))
}
