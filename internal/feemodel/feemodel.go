package feemodel

import (
	"errors"
	"fmt"

	"github.com/wnt/crucible/internal/fixedpoint"
)

// ErrInvalidRate is returned when a configured rate falls outside [0, 10000]
// basis points.
var ErrInvalidRate = errors.New("feemodel: rate outside [0, 10000] bps")

// Schedule holds the protocol fee configuration in basis points. Defaults
// mirror the reference deployment; every value is a tunable input, nothing
// here is hardcoded into the arithmetic.
type Schedule struct {
	WrapBps            int64
	UnwrapEarlyBps     int64
	UnwrapMatureBps    int64
	UnwrapCooldownSecs int64
	LPOpenBps          int64
	LPCloseBps         int64
	YieldBps           int64
	LiquidationBps     int64
	VaultShareBps      int64
	TreasuryShareBps   int64
	ArbRewardBps       int64
	ToleranceBps       int64
}

// DefaultSchedule returns the reference fee schedule: wrap 0.5%, unwrap
// 0.75% easing to 0.3% after a 5 day cooldown, LP open 1%, LP close 2%
// principal + 10% yield, liquidation 10%, 80/20 vault/treasury split and a
// 1% arbitrage depositor reward.
func DefaultSchedule() Schedule {
	return Schedule{
		WrapBps:            50,
		UnwrapEarlyBps:     75,
		UnwrapMatureBps:    30,
		UnwrapCooldownSecs: 5 * 24 * 60 * 60,
		LPOpenBps:          100,
		LPCloseBps:         200,
		YieldBps:           1_000,
		LiquidationBps:     1_000,
		VaultShareBps:      8_000,
		TreasuryShareBps:   2_000,
		ArbRewardBps:       100,
		ToleranceBps:       100,
	}
}

// Validate checks every rate in the schedule and the split totals.
func (s Schedule) Validate() error {
	rates := map[string]int64{
		"wrap":           s.WrapBps,
		"unwrap_early":   s.UnwrapEarlyBps,
		"unwrap_mature":  s.UnwrapMatureBps,
		"lp_open":        s.LPOpenBps,
		"lp_close":       s.LPCloseBps,
		"yield":          s.YieldBps,
		"liquidation":    s.LiquidationBps,
		"vault_share":    s.VaultShareBps,
		"treasury_share": s.TreasuryShareBps,
		"arb_reward":     s.ArbRewardBps,
		"tolerance":      s.ToleranceBps,
	}
	for name, bps := range rates {
		if !fixedpoint.ValidBps(bps) {
			return fmt.Errorf("%w: %s=%d", ErrInvalidRate, name, bps)
		}
	}
	if s.VaultShareBps+s.TreasuryShareBps != fixedpoint.BpsDenominator {
		return fmt.Errorf("%w: vault+treasury split must equal 10000 bps, got %d",
			ErrInvalidRate, s.VaultShareBps+s.TreasuryShareBps)
	}
	if s.UnwrapCooldownSecs < 0 {
		return fmt.Errorf("feemodel: negative unwrap cooldown %d", s.UnwrapCooldownSecs)
	}
	return nil
}

// WrapFee splits a gross deposit into net and fee at the wrap rate. The fee
// is clamped so net can never go negative.
func (s Schedule) WrapFee(amount int64) (net, fee int64, err error) {
	return takeFee(amount, s.WrapBps)
}

// UnwrapFee applies the early rate while the deposit is inside the cooldown
// window and the mature rate afterwards.
func (s Schedule) UnwrapFee(amount, sinceDepositSecs int64) (net, fee int64, err error) {
	rate := s.UnwrapMatureBps
	if sinceDepositSecs < s.UnwrapCooldownSecs {
		rate = s.UnwrapEarlyBps
	}
	return takeFee(amount, rate)
}

// SplitFee divides a fee between the vault and the protocol treasury. The
// vault takes its share first; the treasury receives the remainder so no
// unit is lost to rounding.
func (s Schedule) SplitFee(fee int64) (vaultPortion, treasuryPortion int64, err error) {
	if fee <= 0 {
		return 0, 0, nil
	}
	vaultPortion, err = fixedpoint.MulBps(fee, s.VaultShareBps)
	if err != nil {
		return 0, 0, err
	}
	return vaultPortion, fee - vaultPortion, nil
}

// LPOpenFee computes the fee on the combined value of a new liquidity
// position.
func (s Schedule) LPOpenFee(positionValue int64) (int64, error) {
	_, fee, err := takeFee(positionValue, s.LPOpenBps)
	return fee, err
}

// LPCloseFee computes the principal and yield fee components charged when a
// liquidity position is closed. Yield that never materialised is not
// charged.
func (s Schedule) LPCloseFee(principal, yieldEarned int64) (principalFee, yieldFee int64, err error) {
	_, principalFee, err = takeFee(principal, s.LPCloseBps)
	if err != nil {
		return 0, 0, err
	}
	if yieldEarned > 0 {
		_, yieldFee, err = takeFee(yieldEarned, s.YieldBps)
		if err != nil {
			return 0, 0, err
		}
	}
	return principalFee, yieldFee, nil
}

// LiquidationFee computes the penalty taken from seized collateral.
func (s Schedule) LiquidationFee(positionValue int64) (int64, error) {
	_, fee, err := takeFee(positionValue, s.LiquidationBps)
	return fee, err
}

// ArbReward computes the depositor reward on an arbitrage profit deposit,
// denominated in base-asset value before conversion to receipt tokens.
func (s Schedule) ArbReward(amount int64) (int64, error) {
	reward, err := fixedpoint.MulBps(amount, s.ArbRewardBps)
	if err != nil {
		return 0, err
	}
	return fixedpoint.Clamp(reward, amount), nil
}

func takeFee(amount, bps int64) (net, fee int64, err error) {
	if !fixedpoint.ValidBps(bps) {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidRate, bps)
	}
	if amount <= 0 {
		return amount, 0, nil
	}
	fee, err = fixedpoint.MulBps(amount, bps)
	if err != nil {
		return 0, 0, err
	}
	fee = fixedpoint.Clamp(fee, amount)
	return amount - fee, fee, nil
}
