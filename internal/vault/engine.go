package vault

import (
	"errors"
	"fmt"

	"github.com/wnt/crucible/internal/feemodel"
	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/models"
)

var (
	ErrVaultPaused         = errors.New("vault engine: vault is paused")
	ErrInvalidAmount       = errors.New("vault engine: amount must be positive")
	ErrInsufficientBalance = errors.New("vault engine: receipt amount exceeds outstanding supply")
)

// Engine performs the exchange-rate bookkeeping for a vault: minting and
// burning receipt tokens against the pooled base balance. The engine mutates
// the record it is handed; persistence and transaction scope belong to the
// caller so every operation commits as a single state transition.
type Engine struct {
	fees feemodel.Schedule
}

// NewEngine builds an engine over the given fee schedule.
func NewEngine(fees feemodel.Schedule) *Engine {
	return &Engine{fees: fees}
}

// Fees exposes the active fee schedule.
func (e *Engine) Fees() feemodel.Schedule { return e.fees }

// CurrentRate returns baseBalance / receiptSupply scaled by
// fixedpoint.Scale, or 1.0 scaled when no receipts are outstanding. Fixed
// point with floor division throughout: the remainder always stays in the
// vault, which is what keeps the rate non-decreasing across wrap/unwrap
// cycles.
func (e *Engine) CurrentRate(v *models.Vault) int64 {
	if v.ReceiptSupply == 0 {
		return fixedpoint.Scale
	}
	return fixedpoint.Ratio(v.BaseBalance, v.ReceiptSupply)
}

// WrapResult reports the outcome of a wrap.
type WrapResult struct {
	ReceiptMinted int64
	FeeTaken      int64
	VaultShare    int64
	TreasuryShare int64
	RateBefore    int64
}

// Wrap deposits grossAmount of base asset, takes the wrap fee, and mints
// receipt tokens at the pre-fee exchange rate. The vault share of the fee
// enters BaseBalance and FeesAccrued after the mint amount is fixed, raising
// the rate for all receipt holders, the depositor's new stake included. The
// treasury share is reported to the caller for transfer out; it never enters
// the vault.
func (e *Engine) Wrap(v *models.Vault, grossAmount int64) (WrapResult, error) {
	if v.Paused {
		return WrapResult{}, ErrVaultPaused
	}
	if grossAmount <= 0 {
		return WrapResult{}, fmt.Errorf("%w: got %d", ErrInvalidAmount, grossAmount)
	}

	net, fee, err := e.fees.WrapFee(grossAmount)
	if err != nil {
		return WrapResult{}, err
	}
	vaultShare, treasuryShare, err := e.fees.SplitFee(fee)
	if err != nil {
		return WrapResult{}, err
	}

	rate := e.CurrentRate(v)
	minted, err := fixedpoint.DivScaled(net, rate)
	if err != nil {
		return WrapResult{}, err
	}

	v.BaseBalance += net + vaultShare
	v.FeesAccrued += vaultShare
	v.ReceiptSupply += minted

	return WrapResult{
		ReceiptMinted: minted,
		FeeTaken:      fee,
		VaultShare:    vaultShare,
		TreasuryShare: treasuryShare,
		RateBefore:    rate,
	}, nil
}

// UnwrapResult reports the outcome of an unwrap.
type UnwrapResult struct {
	BaseReturned  int64
	FeeTaken      int64
	VaultShare    int64
	TreasuryShare int64
}

// Unwrap burns receiptAmount and releases its base value at the current
// rate, minus the unwrap fee. The vault share of the fee is re-added to the
// base balance so it stays with the remaining holders instead of leaving
// with the withdrawer.
func (e *Engine) Unwrap(v *models.Vault, receiptAmount, sinceDepositSecs int64) (UnwrapResult, error) {
	if v.Paused {
		return UnwrapResult{}, ErrVaultPaused
	}
	if receiptAmount <= 0 {
		return UnwrapResult{}, fmt.Errorf("%w: got %d", ErrInvalidAmount, receiptAmount)
	}
	if receiptAmount > v.ReceiptSupply {
		return UnwrapResult{}, fmt.Errorf("%w: requested %d, supply %d",
			ErrInsufficientBalance, receiptAmount, v.ReceiptSupply)
	}

	rate := e.CurrentRate(v)
	gross, err := fixedpoint.MulScaled(receiptAmount, rate)
	if err != nil {
		return UnwrapResult{}, err
	}
	if gross > v.BaseBalance {
		// Floor rounding keeps gross <= baseBalance for any burn of
		// tracked supply; a violation means corrupted state.
		return UnwrapResult{}, fmt.Errorf("%w: gross %d exceeds vault balance %d",
			ErrInsufficientBalance, gross, v.BaseBalance)
	}

	net, fee, err := e.fees.UnwrapFee(gross, sinceDepositSecs)
	if err != nil {
		return UnwrapResult{}, err
	}
	vaultShare, treasuryShare, err := e.fees.SplitFee(fee)
	if err != nil {
		return UnwrapResult{}, err
	}

	v.ReceiptSupply -= receiptAmount
	v.BaseBalance -= gross
	v.BaseBalance += vaultShare
	v.FeesAccrued += vaultShare

	return UnwrapResult{
		BaseReturned:  net,
		FeeTaken:      fee,
		VaultShare:    vaultShare,
		TreasuryShare: treasuryShare,
	}, nil
}

// ArbDepositResult reports the split of an arbitrage profit deposit.
type ArbDepositResult struct {
	VaultShare    int64
	TreasuryShare int64
	RewardMinted  int64
	RateAfter     int64
}

// DepositArbitrageProfit routes externally sourced profit into the vault:
// the vault share raises the exchange rate for every holder, the treasury
// share is transferred out, and the depositor is minted a reward worth the
// configured fraction of the deposit, valued at the post-deposit rate. This
// is the only path that grows the vault without a fully offsetting mint.
func (e *Engine) DepositArbitrageProfit(v *models.Vault, amount int64) (ArbDepositResult, error) {
	if v.Paused {
		return ArbDepositResult{}, ErrVaultPaused
	}
	if amount <= 0 {
		return ArbDepositResult{}, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}

	vaultShare, treasuryShare, err := e.fees.SplitFee(amount)
	if err != nil {
		return ArbDepositResult{}, err
	}

	v.BaseBalance += vaultShare
	v.FeesAccrued += vaultShare

	rate := e.CurrentRate(v)
	rewardValue, err := e.fees.ArbReward(amount)
	if err != nil {
		return ArbDepositResult{}, err
	}
	rewardMinted, err := fixedpoint.DivScaled(rewardValue, rate)
	if err != nil {
		return ArbDepositResult{}, err
	}
	v.ReceiptSupply += rewardMinted

	return ArbDepositResult{
		VaultShare:    vaultShare,
		TreasuryShare: treasuryShare,
		RewardMinted:  rewardMinted,
		RateAfter:     e.CurrentRate(v),
	}, nil
}
