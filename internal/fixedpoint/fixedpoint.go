package fixedpoint

import (
	"errors"
	"math/big"
)

// Scale is the fixed-point scaling factor used for exchange rates and USD
// prices throughout the engine. One whole unit (1.0, $1) is represented as
// 1_000_000.
const Scale int64 = 1_000_000

// BpsDenominator converts basis points to a ratio. 1 bps = 1/10_000.
const BpsDenominator int64 = 10_000

// ErrOverflow is returned when a result does not fit in an int64.
var ErrOverflow = errors.New("fixedpoint: result overflows int64")

var (
	bigScale = big.NewInt(Scale)
	bigBps   = big.NewInt(BpsDenominator)
)

// MulDiv computes a * b / div with an arbitrary-precision intermediate and
// floor rounding toward zero. Financial invariants here depend on never
// rounding in the caller's favour, so the truncated remainder always stays
// with the vault.
func MulDiv(a, b, div int64) (int64, error) {
	if div == 0 {
		return 0, errors.New("fixedpoint: division by zero")
	}
	product := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	product.Quo(product, big.NewInt(div))
	if !product.IsInt64() {
		return 0, ErrOverflow
	}
	return product.Int64(), nil
}

// MulBps applies a basis-point rate to an amount, flooring the result.
func MulBps(amount, bps int64) (int64, error) {
	return MulDiv(amount, bps, BpsDenominator)
}

// MulScaled multiplies an amount by a Scale-scaled factor, flooring.
func MulScaled(amount, scaled int64) (int64, error) {
	return MulDiv(amount, scaled, Scale)
}

// DivScaled divides an amount by a Scale-scaled factor, flooring.
func DivScaled(amount, scaled int64) (int64, error) {
	if scaled == 0 {
		return 0, errors.New("fixedpoint: division by zero")
	}
	return MulDiv(amount, Scale, scaled)
}

// Ratio returns num / den as a Scale-scaled factor, flooring. A zero
// denominator yields zero.
func Ratio(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	result := new(big.Int).Mul(big.NewInt(num), bigScale)
	result.Quo(result, big.NewInt(den))
	if !result.IsInt64() {
		return 0
	}
	return result.Int64()
}

// ValidBps reports whether a rate expressed in basis points lies inside the
// permitted [0, 10000] band.
func ValidBps(bps int64) bool {
	return bps >= 0 && bps <= BpsDenominator
}

// Clamp caps value at limit. Used so a computed fee can never exceed the
// amount it is taken from.
func Clamp(value, limit int64) int64 {
	if value > limit {
		return limit
	}
	return value
}

// ToFloat converts a Scale-scaled factor to a float64 for metrics and
// display only. The engine itself never does arithmetic on the result.
func ToFloat(scaled int64) float64 {
	return float64(scaled) / float64(Scale)
}
