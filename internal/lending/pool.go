package lending

import (
	"errors"
	"fmt"

	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/models"
)

var (
	ErrInvalidAmount         = errors.New("lending pool: amount must be positive")
	ErrInsufficientLiquidity = errors.New("lending pool: insufficient liquidity")
	ErrOverRepayment         = errors.New("lending pool: repayment exceeds outstanding borrow")
)

// SecondsPerYear is the accrual denominator for the annualized borrow rate.
const SecondsPerYear int64 = 31_536_000

// Pool wraps the mutation and interest arithmetic for an isolated lending
// pool record. Like the vault engine it mutates the record in place and
// leaves persistence to the caller.
type Pool struct{}

// NewPool returns a pool calculator.
func NewPool() *Pool { return &Pool{} }

// Supply adds stable-asset liquidity for lenders.
func (p *Pool) Supply(lp *models.LendingPool, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	lp.TotalLiquidity += amount
	return nil
}

// Withdraw removes un-borrowed liquidity. Funds backing outstanding borrows
// cannot leave the pool.
func (p *Pool) Withdraw(lp *models.LendingPool, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	if amount > lp.AvailableLiquidity() {
		return fmt.Errorf("%w: requested %d, available %d",
			ErrInsufficientLiquidity, amount, lp.AvailableLiquidity())
	}
	lp.TotalLiquidity -= amount
	return nil
}

// BorrowResult reports a successful borrow and the rate it was taken at.
type BorrowResult struct {
	Borrowed int64
	RateBps  int64
}

// Borrow draws from available liquidity. The pool solvency invariant
// totalBorrowed <= totalLiquidity holds after every call; a draw that would
// break it fails whole.
func (p *Pool) Borrow(lp *models.LendingPool, amount int64) (BorrowResult, error) {
	if amount <= 0 {
		return BorrowResult{}, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	if amount > lp.AvailableLiquidity() {
		return BorrowResult{}, fmt.Errorf("%w: requested %d, available %d",
			ErrInsufficientLiquidity, amount, lp.AvailableLiquidity())
	}
	lp.TotalBorrowed += amount
	return BorrowResult{Borrowed: amount, RateBps: lp.BorrowRateBps}, nil
}

// Repay returns borrowed principal to the pool. Interest paid on top of the
// principal is supplied separately via Supply so it accrues to lenders.
func (p *Pool) Repay(lp *models.LendingPool, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	if amount > lp.TotalBorrowed {
		return fmt.Errorf("%w: repaying %d, outstanding %d",
			ErrOverRepayment, amount, lp.TotalBorrowed)
	}
	lp.TotalBorrowed -= amount
	return nil
}

// WriteOff removes unrecoverable borrowed principal after a liquidation
// whose collateral did not cover the debt. Lenders absorb the loss through
// the liquidity total.
func (p *Pool) WriteOff(lp *models.LendingPool, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	if amount > lp.TotalBorrowed {
		return fmt.Errorf("%w: writing off %d, outstanding %d",
			ErrOverRepayment, amount, lp.TotalBorrowed)
	}
	lp.TotalBorrowed -= amount
	lp.TotalLiquidity -= amount
	return nil
}

// AccrueInterest computes simple (non-compounding) interest on a borrowed
// amount over elapsed seconds at the pool's annualized rate. Accrual is
// evaluated at repay/close time rather than continuously.
func (p *Pool) AccrueInterest(lp *models.LendingPool, borrowedAmount, elapsedSecs int64) (int64, error) {
	if borrowedAmount <= 0 || elapsedSecs <= 0 {
		return 0, nil
	}
	annual, err := fixedpoint.MulBps(borrowedAmount, lp.BorrowRateBps)
	if err != nil {
		return 0, err
	}
	return fixedpoint.MulDiv(annual, elapsedSecs, SecondsPerYear)
}

// SplitInterest divides accrued interest between the pool's lenders and the
// protocol treasury per the configured protocol fee.
func (p *Pool) SplitInterest(lp *models.LendingPool, interest int64) (lenderShare, protocolShare int64, err error) {
	if interest <= 0 {
		return 0, 0, nil
	}
	protocolShare, err = fixedpoint.MulBps(interest, lp.ProtocolFeeOnInterestBps)
	if err != nil {
		return 0, 0, err
	}
	return interest - protocolShare, protocolShare, nil
}

// Utilization returns totalBorrowed / totalLiquidity scaled by
// fixedpoint.Scale; zero when the pool is empty.
func (p *Pool) Utilization(lp *models.LendingPool) int64 {
	return fixedpoint.Ratio(lp.TotalBorrowed, lp.TotalLiquidity)
}

// SupplyAPY derives the lender yield: borrowRate * utilization *
// (1 - protocolFee). Lenders earn only on the utilized fraction, minus the
// protocol's cut. Returned scaled by fixedpoint.Scale.
func (p *Pool) SupplyAPY(lp *models.LendingPool) (int64, error) {
	util := p.Utilization(lp)
	if util == 0 {
		return 0, nil
	}
	gross, err := fixedpoint.MulDiv(lp.BorrowRateBps*util, 1, fixedpoint.BpsDenominator)
	if err != nil {
		return 0, err
	}
	return fixedpoint.MulBps(gross, fixedpoint.BpsDenominator-lp.ProtocolFeeOnInterestBps)
}
