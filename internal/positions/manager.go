package positions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/wnt/crucible/internal/feemodel"
	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/health"
	"github.com/wnt/crucible/internal/lending"
	"github.com/wnt/crucible/internal/logger"
	"github.com/wnt/crucible/internal/metrics"
	"github.com/wnt/crucible/internal/models"
	"github.com/wnt/crucible/internal/oracle"
	"github.com/wnt/crucible/internal/swaprouter"
	"github.com/wnt/crucible/internal/vault"
)

var (
	ErrInvalidAmount         = errors.New("position manager: amount must be positive")
	ErrUnequalValue          = errors.New("position manager: base and stable legs are not equal value")
	ErrInvalidLeverageFactor = errors.New("position manager: leverage factor must be 100, 150 or 200")
	ErrPositionAlreadyClosed = errors.New("position manager: position already closed")
	ErrNotLeveraged          = errors.New("position manager: position has no borrow to liquidate")
)

// Manager owns the lifecycle of the four position kinds. Every mutating
// operation resolves its external lookups up front and then commits as one
// repository transaction: value is never created or destroyed by a partial
// failure.
type Manager struct {
	repo       Repository
	engine     *vault.Engine
	pool       *lending.Pool
	monitor    *health.Monitor
	prices     oracle.PriceOracle
	router     swaprouter.Router
	fees       feemodel.Schedule
	poolID     uint
	stableMint solana.PublicKey
	logger     zerolog.Logger
	now        func() time.Time
}

// NewManager wires the position manager.
func NewManager(
	repo Repository,
	engine *vault.Engine,
	pool *lending.Pool,
	monitor *health.Monitor,
	prices oracle.PriceOracle,
	router swaprouter.Router,
	poolID uint,
	stableMint solana.PublicKey,
	log zerolog.Logger,
) *Manager {
	return &Manager{
		repo:       repo,
		engine:     engine,
		pool:       pool,
		monitor:    monitor,
		prices:     prices,
		router:     router,
		fees:       engine.Fees(),
		poolID:     poolID,
		stableMint: stableMint,
		logger:     log.With().Str("component", "position_manager").Logger(),
		now:        time.Now,
	}
}

// SetClock overrides the time source. Exposed for tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// OpenWrapPosition deposits base asset into the vault and records the
// minted receipt tokens as a wrap position.
func (m *Manager) OpenWrapPosition(ctx context.Context, owner solana.PublicKey, vaultID uint, grossBaseAmount int64) (*models.Position, error) {
	var pos *models.Position
	err := m.repo.WithTx(ctx, func(tx Repository) error {
		v, err := tx.GetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		res, err := m.engine.Wrap(v, grossBaseAmount)
		if err != nil {
			return err
		}
		if err := tx.SaveVault(ctx, v); err != nil {
			return err
		}
		pos, err = m.createPosition(ctx, tx, v, &models.Position{
			Owner:             owner.String(),
			VaultID:           vaultID,
			Kind:              models.KindWrap,
			BaseAmount:        grossBaseAmount - res.FeeTaken,
			ReceiptLocked:     res.ReceiptMinted,
			EntryExchangeRate: res.RateBefore,
		})
		if err != nil {
			return err
		}
		return tx.RecordFeeEvent(ctx, &models.FeeEvent{
			VaultID:       vaultID,
			Source:        models.FeeSourceWrap,
			PositionID:    &pos.ID,
			VaultShare:    res.VaultShare,
			TreasuryShare: res.TreasuryShare,
			OccurredAt:    m.now(),
		})
	})
	if err != nil {
		metrics.RecordWrap("failed")
		return nil, err
	}
	metrics.RecordWrap("success")
	metrics.PositionsOpen.WithLabelValues(string(models.KindWrap)).Inc()
	ownerLogger := logger.WithOwner(m.logger, pos.Owner)
	ownerLogger.Info().
		Uint("vault_id", vaultID).
		Int64("base_amount", pos.BaseAmount).
		Int64("receipt_minted", pos.ReceiptLocked).
		Msg("Opened wrap position")
	return pos, nil
}

// OpenLPPosition pairs a base deposit with a stable deposit of equal value
// and locks the backing receipt tokens inside the position: they are not a
// spendable balance while the position is open.
func (m *Manager) OpenLPPosition(ctx context.Context, owner solana.PublicKey, vaultID uint, baseAmount, stableAmount int64) (*models.Position, error) {
	price, err := m.vaultBasePrice(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	return m.openPaired(ctx, owner, vaultID, pairedOpen{
		userBase:   baseAmount,
		userStable: stableAmount,
		kind:       models.KindLP,
		leverage:   models.LeverageNone,
		price:      price,
	})
}

// OpenLeveragedPosition opens an LP position whose stable side is partly
// financed by the lending pool. The borrow happens first: if the pool
// refuses, nothing is taken from the user. Half the borrow is swapped into
// base so the combined legs stay equal value.
func (m *Manager) OpenLeveragedPosition(ctx context.Context, owner solana.PublicKey, vaultID uint, baseAmount, stableAmount, leverageFactor, maxSlippageBps int64) (*models.Position, error) {
	if !models.ValidLeverageFactor(leverageFactor) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLeverageFactor, leverageFactor)
	}
	price, err := m.vaultBasePrice(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	return m.openPaired(ctx, owner, vaultID, pairedOpen{
		userBase:       baseAmount,
		userStable:     stableAmount,
		kind:           models.KindLeveragedLP,
		leverage:       leverageFactor,
		price:          price,
		maxSlippageBps: maxSlippageBps,
	})
}

type pairedOpen struct {
	userBase       int64
	userStable     int64
	kind           models.PositionKind
	leverage       int64
	price          int64
	maxSlippageBps int64
}

func (m *Manager) openPaired(ctx context.Context, owner solana.PublicKey, vaultID uint, op pairedOpen) (*models.Position, error) {
	if op.userBase <= 0 || op.userStable <= 0 {
		return nil, fmt.Errorf("%w: base %d stable %d", ErrInvalidAmount, op.userBase, op.userStable)
	}

	baseValue, err := fixedpoint.MulScaled(op.userBase, op.price)
	if err != nil {
		return nil, err
	}
	if err := m.checkEqualValue(baseValue, op.userStable); err != nil {
		return nil, err
	}

	borrowed := int64(0)
	if op.leverage > models.LeverageNone {
		borrowed, err = fixedpoint.MulDiv(baseValue+op.userStable, op.leverage-100, 100)
		if err != nil {
			return nil, err
		}
	}

	// Quote before any state is touched; a dead route fails the open
	// outright.
	var quote swaprouter.Quote
	swapIn := borrowed / 2
	if swapIn > 0 {
		v, err := m.repo.GetVault(ctx, vaultID)
		if err != nil {
			return nil, err
		}
		baseMint, err := solana.PublicKeyFromBase58(v.BaseMint)
		if err != nil {
			return nil, fmt.Errorf("invalid base mint on vault %d: %w", vaultID, err)
		}
		quote, err = m.router.Quote(ctx, m.stableMint, baseMint, swapIn)
		if err != nil {
			return nil, err
		}
	}

	var pos *models.Position
	err = m.repo.WithTx(ctx, func(tx Repository) error {
		swappedBase := int64(0)
		if borrowed > 0 {
			lp, err := tx.GetPool(ctx, m.poolID)
			if err != nil {
				return err
			}
			if _, err := m.pool.Borrow(lp, borrowed); err != nil {
				return err
			}
			if err := tx.SavePool(ctx, lp); err != nil {
				return err
			}
			swappedBase, err = m.router.Execute(ctx, quote, op.maxSlippageBps)
			if err != nil {
				return err
			}
		}

		combinedBase := op.userBase + swappedBase
		combinedStable := op.userStable + (borrowed - swapIn)

		v, err := tx.GetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		if v.Paused {
			return vault.ErrVaultPaused
		}

		combinedBaseValue, err := fixedpoint.MulScaled(combinedBase, op.price)
		if err != nil {
			return err
		}
		if borrowed > 0 {
			// The swapped half may land anywhere the slippage floor
			// allows, so the combined legs get the wider band.
			if err := m.checkValueWithin(combinedBaseValue, combinedStable,
				m.fees.ToleranceBps+op.maxSlippageBps); err != nil {
				return err
			}
		}
		openFee, err := m.fees.LPOpenFee(combinedBaseValue + combinedStable)
		if err != nil {
			return err
		}
		if openFee >= combinedStable {
			return fmt.Errorf("%w: stable leg %d cannot cover open fee %d",
				ErrInvalidAmount, combinedStable, openFee)
		}
		vaultShareVal, treasuryShareVal, err := m.fees.SplitFee(openFee)
		if err != nil {
			return err
		}
		vaultShareBase, err := fixedpoint.DivScaled(vaultShareVal, op.price)
		if err != nil {
			return err
		}

		rate := m.engine.CurrentRate(v)
		receiptLocked, err := fixedpoint.DivScaled(combinedBase, rate)
		if err != nil {
			return err
		}

		v.BaseBalance += combinedBase + vaultShareBase
		v.FeesAccrued += vaultShareBase
		v.ReceiptSupply += receiptLocked
		if err := tx.SaveVault(ctx, v); err != nil {
			return err
		}

		pos, err = m.createPosition(ctx, tx, v, &models.Position{
			Owner:             owner.String(),
			VaultID:           vaultID,
			Kind:              op.kind,
			BaseAmount:        combinedBase,
			StableAmount:      combinedStable - openFee,
			BorrowedStable:    borrowed,
			LeverageFactor:    op.leverage,
			ReceiptLocked:     receiptLocked,
			EntryExchangeRate: rate,
			EntryPrice:        op.price,
		})
		if err != nil {
			return err
		}
		return tx.RecordFeeEvent(ctx, &models.FeeEvent{
			VaultID:       vaultID,
			Source:        models.FeeSourceLPOpen,
			PositionID:    &pos.ID,
			VaultShare:    vaultShareVal,
			TreasuryShare: treasuryShareVal,
			OccurredAt:    m.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.PositionsOpen.WithLabelValues(string(op.kind)).Inc()
	ownerLogger := logger.WithOwner(m.logger, pos.Owner)
	ownerLogger.Info().
		Uint("vault_id", vaultID).
		Str("kind", string(op.kind)).
		Int64("base_amount", pos.BaseAmount).
		Int64("stable_amount", pos.StableAmount).
		Int64("borrowed_stable", pos.BorrowedStable).
		Msg("Opened liquidity position")
	return pos, nil
}

// CloseResult reports everything released by closing a position.
type CloseResult struct {
	BaseReturned   int64
	StableReturned int64
	YieldEarned    int64
	Fees           int64
	RepaidBorrow   int64
	Interest       int64
}

// ClosePosition settles a position by explicit id: burns the locked
// receipts at the live exchange rate, takes close fees, repays any borrow
// plus accrued interest, and releases the remainder.
func (m *Manager) ClosePosition(ctx context.Context, positionID uint, maxSlippageBps int64) (CloseResult, error) {
	peek, err := m.repo.GetPosition(ctx, positionID)
	if err != nil {
		return CloseResult{}, err
	}
	if !peek.IsOpen {
		return CloseResult{}, fmt.Errorf("%w: position %d", ErrPositionAlreadyClosed, positionID)
	}
	price := int64(0)
	if peek.Kind != models.KindWrap {
		price, err = m.vaultBasePrice(ctx, peek.VaultID)
		if err != nil {
			return CloseResult{}, err
		}
	}

	var result CloseResult
	err = m.repo.WithTx(ctx, func(tx Repository) error {
		pos, err := tx.GetPosition(ctx, positionID)
		if err != nil {
			return err
		}
		if !pos.IsOpen {
			return fmt.Errorf("%w: position %d", ErrPositionAlreadyClosed, positionID)
		}
		v, err := tx.GetVault(ctx, pos.VaultID)
		if err != nil {
			return err
		}
		elapsed := int64(m.now().Sub(pos.OpenedAt).Seconds())

		if pos.Kind == models.KindWrap {
			result, err = m.closeWrap(ctx, tx, v, pos, elapsed)
		} else {
			result, err = m.closePaired(ctx, tx, v, pos, price, elapsed)
		}
		if err != nil {
			return err
		}

		closedAt := m.now()
		pos.IsOpen = false
		pos.ClosedAt = &closedAt
		return tx.SavePosition(ctx, pos)
	})
	if err != nil {
		return CloseResult{}, err
	}

	metrics.PositionsOpen.WithLabelValues(string(peek.Kind)).Dec()
	posLogger := logger.WithPosition(m.logger, positionID)
	posLogger.Info().
		Int64("base_returned", result.BaseReturned).
		Int64("stable_returned", result.StableReturned).
		Int64("yield_earned", result.YieldEarned).
		Int64("repaid_borrow", result.RepaidBorrow).
		Msg("Closed position")
	return result, nil
}

func (m *Manager) closeWrap(ctx context.Context, tx Repository, v *models.Vault, pos *models.Position, elapsed int64) (CloseResult, error) {
	rate := m.engine.CurrentRate(v)
	gross, err := fixedpoint.MulScaled(pos.ReceiptLocked, rate)
	if err != nil {
		return CloseResult{}, err
	}
	res, err := m.engine.Unwrap(v, pos.ReceiptLocked, elapsed)
	if err != nil {
		metrics.RecordUnwrap("failed")
		return CloseResult{}, err
	}
	if err := tx.SaveVault(ctx, v); err != nil {
		return CloseResult{}, err
	}
	if err := tx.RecordFeeEvent(ctx, &models.FeeEvent{
		VaultID:       pos.VaultID,
		Source:        models.FeeSourceUnwrap,
		PositionID:    &pos.ID,
		VaultShare:    res.VaultShare,
		TreasuryShare: res.TreasuryShare,
		OccurredAt:    m.now(),
	}); err != nil {
		return CloseResult{}, err
	}
	metrics.RecordUnwrap("success")
	return CloseResult{
		BaseReturned: res.BaseReturned,
		YieldEarned:  gross - pos.BaseAmount,
		Fees:         res.FeeTaken,
	}, nil
}

func (m *Manager) closePaired(ctx context.Context, tx Repository, v *models.Vault, pos *models.Position, price, elapsed int64) (CloseResult, error) {
	if v.Paused {
		return CloseResult{}, vault.ErrVaultPaused
	}
	rate := m.engine.CurrentRate(v)
	currentBase, err := fixedpoint.MulScaled(pos.ReceiptLocked, rate)
	if err != nil {
		return CloseResult{}, err
	}
	yieldBase := currentBase - pos.BaseAmount

	// Release the locked backing from the vault.
	v.ReceiptSupply -= pos.ReceiptLocked
	v.BaseBalance -= currentBase

	principalValue, err := fixedpoint.MulScaled(pos.BaseAmount, price)
	if err != nil {
		return CloseResult{}, err
	}
	principalValue += pos.StableAmount
	yieldValue, err := fixedpoint.MulScaled(yieldBase, price)
	if err != nil {
		return CloseResult{}, err
	}

	principalFee, yieldFee, err := m.fees.LPCloseFee(principalValue, yieldValue)
	if err != nil {
		return CloseResult{}, err
	}
	totalFee := principalFee + yieldFee
	vaultShareVal, treasuryShareVal, err := m.fees.SplitFee(totalFee)
	if err != nil {
		return CloseResult{}, err
	}
	vaultShareBase, err := fixedpoint.DivScaled(vaultShareVal, price)
	if err != nil {
		return CloseResult{}, err
	}
	v.BaseBalance += vaultShareBase
	v.FeesAccrued += vaultShareBase

	baseReturned := currentBase
	stableReturned := pos.StableAmount

	// Close fee comes off the stable side first, then the base side.
	baseReturned, stableReturned, err = deductValue(baseReturned, stableReturned, totalFee, price)
	if err != nil {
		return CloseResult{}, err
	}

	result := CloseResult{
		YieldEarned: yieldValue,
		Fees:        totalFee,
	}

	if pos.BorrowedStable > 0 {
		lp, err := tx.GetPool(ctx, m.poolID)
		if err != nil {
			return CloseResult{}, err
		}
		interest, err := m.pool.AccrueInterest(lp, pos.BorrowedStable, elapsed)
		if err != nil {
			return CloseResult{}, err
		}
		lenderShare, protocolShare, err := m.pool.SplitInterest(lp, interest)
		if err != nil {
			return CloseResult{}, err
		}
		if err := m.pool.Repay(lp, pos.BorrowedStable); err != nil {
			return CloseResult{}, err
		}
		if lenderShare > 0 {
			if err := m.pool.Supply(lp, lenderShare); err != nil {
				return CloseResult{}, err
			}
		}
		if err := tx.SavePool(ctx, lp); err != nil {
			return CloseResult{}, err
		}

		baseReturned, stableReturned, err = deductValue(baseReturned, stableReturned, pos.BorrowedStable+interest, price)
		if err != nil {
			return CloseResult{}, err
		}
		result.RepaidBorrow = pos.BorrowedStable
		result.Interest = interest

		if protocolShare > 0 {
			if err := tx.RecordFeeEvent(ctx, &models.FeeEvent{
				VaultID:       pos.VaultID,
				Source:        models.FeeSourceInterest,
				PositionID:    &pos.ID,
				TreasuryShare: protocolShare,
				OccurredAt:    m.now(),
			}); err != nil {
				return CloseResult{}, err
			}
		}
	}

	if err := tx.SaveVault(ctx, v); err != nil {
		return CloseResult{}, err
	}
	if err := tx.RecordFeeEvent(ctx, &models.FeeEvent{
		VaultID:       pos.VaultID,
		Source:        models.FeeSourceLPClose,
		PositionID:    &pos.ID,
		VaultShare:    vaultShareVal,
		TreasuryShare: treasuryShareVal,
		OccurredAt:    m.now(),
	}); err != nil {
		return CloseResult{}, err
	}

	result.BaseReturned = baseReturned
	result.StableReturned = stableReturned
	return result, nil
}

// LiquidationResult reports the value split of an executed liquidation.
type LiquidationResult struct {
	HealthFactor    int64
	CollateralValue int64
	Fee             int64
	Repaid          int64
	OwnerRemainder  int64
	Interest        int64
}

// Liquidate seizes an underwater leveraged position: the liquidation fee is
// split like every other fee, the pool is repaid as far as the collateral
// reaches, and any remainder goes back to the original owner.
func (m *Manager) Liquidate(ctx context.Context, positionID uint) (LiquidationResult, error) {
	peek, err := m.repo.GetPosition(ctx, positionID)
	if err != nil {
		return LiquidationResult{}, err
	}
	if !peek.IsOpen {
		return LiquidationResult{}, fmt.Errorf("%w: position %d", ErrPositionAlreadyClosed, positionID)
	}
	if peek.BorrowedStable <= 0 {
		return LiquidationResult{}, fmt.Errorf("%w: position %d", ErrNotLeveraged, positionID)
	}
	price, err := m.vaultBasePrice(ctx, peek.VaultID)
	if err != nil {
		return LiquidationResult{}, err
	}

	var result LiquidationResult
	err = m.repo.WithTx(ctx, func(tx Repository) error {
		pos, err := tx.GetPosition(ctx, positionID)
		if err != nil {
			return err
		}
		if !pos.IsOpen {
			return fmt.Errorf("%w: position %d", ErrPositionAlreadyClosed, positionID)
		}
		lp, err := tx.GetPool(ctx, m.poolID)
		if err != nil {
			return err
		}
		elapsed := int64(m.now().Sub(pos.OpenedAt).Seconds())
		interest, err := m.pool.AccrueInterest(lp, pos.BorrowedStable, elapsed)
		if err != nil {
			return err
		}

		plan, err := m.monitor.PlanLiquidation(pos, price, interest)
		if err != nil {
			return err
		}

		v, err := tx.GetVault(ctx, pos.VaultID)
		if err != nil {
			return err
		}
		if v.Paused {
			return vault.ErrVaultPaused
		}
		rate := m.engine.CurrentRate(v)
		currentBase, err := fixedpoint.MulScaled(pos.ReceiptLocked, rate)
		if err != nil {
			return err
		}
		v.ReceiptSupply -= pos.ReceiptLocked
		v.BaseBalance -= currentBase

		vaultShareVal, treasuryShareVal, err := m.fees.SplitFee(plan.Fee)
		if err != nil {
			return err
		}
		vaultShareBase, err := fixedpoint.DivScaled(vaultShareVal, price)
		if err != nil {
			return err
		}
		v.BaseBalance += vaultShareBase
		v.FeesAccrued += vaultShareBase
		if err := tx.SaveVault(ctx, v); err != nil {
			return err
		}

		// Repay principal first; interest above it accrues to lenders
		// minus the protocol cut. A repayment short of the principal is
		// written off against pool liquidity.
		principalRepaid := fixedpoint.Clamp(plan.Repaid, pos.BorrowedStable)
		interestPaid := plan.Repaid - principalRepaid
		if principalRepaid > 0 {
			if err := m.pool.Repay(lp, principalRepaid); err != nil {
				return err
			}
		}
		if shortfall := pos.BorrowedStable - principalRepaid; shortfall > 0 {
			if err := m.pool.WriteOff(lp, shortfall); err != nil {
				return err
			}
		}
		if interestPaid > 0 {
			lenderShare, protocolShare, err := m.pool.SplitInterest(lp, interestPaid)
			if err != nil {
				return err
			}
			if lenderShare > 0 {
				if err := m.pool.Supply(lp, lenderShare); err != nil {
					return err
				}
			}
			if protocolShare > 0 {
				if err := tx.RecordFeeEvent(ctx, &models.FeeEvent{
					VaultID:       pos.VaultID,
					Source:        models.FeeSourceInterest,
					PositionID:    &pos.ID,
					TreasuryShare: protocolShare,
					OccurredAt:    m.now(),
				}); err != nil {
					return err
				}
			}
		}
		if err := tx.SavePool(ctx, lp); err != nil {
			return err
		}

		if err := tx.RecordFeeEvent(ctx, &models.FeeEvent{
			VaultID:       pos.VaultID,
			Source:        models.FeeSourceLiquidation,
			PositionID:    &pos.ID,
			VaultShare:    vaultShareVal,
			TreasuryShare: treasuryShareVal,
			OccurredAt:    m.now(),
		}); err != nil {
			return err
		}

		closedAt := m.now()
		pos.IsOpen = false
		pos.ClosedAt = &closedAt
		if err := tx.SavePosition(ctx, pos); err != nil {
			return err
		}

		result = LiquidationResult{
			HealthFactor:    plan.HealthFactor,
			CollateralValue: plan.CollateralValue,
			Fee:             plan.Fee,
			Repaid:          plan.Repaid,
			OwnerRemainder:  plan.OwnerRemainder,
			Interest:        interest,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, health.ErrNotLiquidatable) {
			metrics.RecordLiquidation("refused")
		} else {
			metrics.RecordLiquidation("failed")
		}
		return LiquidationResult{}, err
	}

	metrics.RecordLiquidation("executed")
	metrics.PositionsOpen.WithLabelValues(string(models.KindLeveragedLP)).Dec()
	posLogger := logger.WithPosition(m.logger, positionID)
	posLogger.Warn().
		Int64("health_factor", result.HealthFactor).
		Int64("repaid", result.Repaid).
		Int64("owner_remainder", result.OwnerRemainder).
		Msg("Liquidated position")
	return result, nil
}

// OpenPositions lists an owner's open positions, optionally scoped to one
// vault.
func (m *Manager) OpenPositions(ctx context.Context, owner solana.PublicKey, vaultID *uint) ([]models.Position, error) {
	return m.repo.OpenPositionsByOwner(ctx, owner.String(), vaultID)
}

func (m *Manager) createPosition(ctx context.Context, tx Repository, v *models.Vault, pos *models.Position) (*models.Position, error) {
	nonce, err := tx.NextNonce(ctx, pos.Owner, v.ID)
	if err != nil {
		return nil, err
	}
	pos.Nonce = nonce
	pos.IsOpen = true
	pos.OpenedAt = m.now()
	if err := tx.CreatePosition(ctx, pos); err != nil {
		return nil, err
	}
	metrics.SetExchangeRate(v.Symbol, fixedpoint.ToFloat(m.engine.CurrentRate(v)))
	return pos, nil
}

func (m *Manager) vaultBasePrice(ctx context.Context, vaultID uint) (int64, error) {
	v, err := m.repo.GetVault(ctx, vaultID)
	if err != nil {
		return 0, err
	}
	mint, err := solana.PublicKeyFromBase58(v.BaseMint)
	if err != nil {
		return 0, fmt.Errorf("invalid base mint on vault %d: %w", vaultID, err)
	}
	return m.prices.Price(ctx, mint)
}

func (m *Manager) checkEqualValue(baseValue, stableAmount int64) error {
	return m.checkValueWithin(baseValue, stableAmount, m.fees.ToleranceBps)
}

func (m *Manager) checkValueWithin(baseValue, stableAmount, toleranceBps int64) error {
	diff := baseValue - stableAmount
	if diff < 0 {
		diff = -diff
	}
	larger := baseValue
	if stableAmount > larger {
		larger = stableAmount
	}
	tolerance, err := fixedpoint.MulBps(larger, toleranceBps)
	if err != nil {
		return err
	}
	if diff > tolerance {
		return fmt.Errorf("%w: base value %d vs stable %d exceeds tolerance %d",
			ErrUnequalValue, baseValue, stableAmount, tolerance)
	}
	return nil
}

// deductValue takes a stable-denominated charge from the stable leg first
// and converts any shortfall from the base leg at the given price.
func deductValue(baseAmount, stableAmount, charge, price int64) (int64, int64, error) {
	if charge <= 0 {
		return baseAmount, stableAmount, nil
	}
	if stableAmount >= charge {
		return baseAmount, stableAmount - charge, nil
	}
	shortfall := charge - stableAmount
	shortfallBase, err := fixedpoint.DivScaled(shortfall, price)
	if err != nil {
		return 0, 0, err
	}
	baseAmount -= shortfallBase
	if baseAmount < 0 {
		baseAmount = 0
	}
	return baseAmount, 0, nil
}
