package arb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/logger"
	"github.com/wnt/crucible/internal/metrics"
	"github.com/wnt/crucible/internal/models"
	"github.com/wnt/crucible/internal/store"
	"github.com/wnt/crucible/internal/vault"
)

// ErrDepositThrottled is returned when a depositor is inside the per-vault
// cooldown window. Rapid wash deposits would otherwise let a caller farm
// the reward mint.
var ErrDepositThrottled = errors.New("arb router: depositor inside cooldown window")

// DefaultCooldown is the minimum spacing between reward-earning deposits by
// one depositor into one vault.
const DefaultCooldown = 60 * time.Second

// Router routes external arbitrage profit into a vault: the split raises
// the exchange rate for every holder, and the depositor earns a small
// receipt-token reward.
type Router struct {
	store    *store.Store
	engine   *vault.Engine
	redis    *redis.Client
	cooldown time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRouter wires the arbitrage revenue router.
func NewRouter(s *store.Store, engine *vault.Engine, rdb *redis.Client, cooldown time.Duration, log zerolog.Logger) *Router {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Router{
		store:    s,
		engine:   engine,
		redis:    rdb,
		cooldown: cooldown,
		logger:   log.With().Str("component", "arb_router").Logger(),
		now:      time.Now,
	}
}

// DepositResult reports a routed profit deposit.
type DepositResult struct {
	VaultShare    int64
	TreasuryShare int64
	RewardMinted  int64
	RateAfter     int64
}

// DepositProfit splits an arbitrage profit into the vault and treasury and
// mints the depositor's reward, all in one transaction. A depositor is
// limited to one deposit per vault per cooldown window.
func (r *Router) DepositProfit(ctx context.Context, depositor solana.PublicKey, vaultID uint, amount int64) (DepositResult, error) {
	if amount <= 0 {
		return DepositResult{}, fmt.Errorf("%w: got %d", vault.ErrInvalidAmount, amount)
	}

	if err := r.claimCooldown(ctx, depositor, vaultID); err != nil {
		return DepositResult{}, err
	}

	var result DepositResult
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		v, err := tx.GetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		res, err := r.engine.DepositArbitrageProfit(v, amount)
		if err != nil {
			return err
		}
		if err := tx.SaveVault(ctx, v); err != nil {
			return err
		}
		if err := tx.RecordFeeEvent(ctx, &models.FeeEvent{
			VaultID:       vaultID,
			Source:        models.FeeSourceArbDeposit,
			VaultShare:    res.VaultShare,
			TreasuryShare: res.TreasuryShare,
			OccurredAt:    r.now(),
		}); err != nil {
			return err
		}

		result = DepositResult{
			VaultShare:    res.VaultShare,
			TreasuryShare: res.TreasuryShare,
			RewardMinted:  res.RewardMinted,
			RateAfter:     res.RateAfter,
		}
		metrics.SetExchangeRate(v.Symbol, fixedpoint.ToFloat(res.RateAfter))
		metrics.RecordFeeAccrued(string(models.FeeSourceArbDeposit), float64(res.VaultShare))
		return nil
	})
	if err != nil {
		// Failed deposits do not consume the cooldown slot
		r.releaseCooldown(ctx, depositor, vaultID)
		return DepositResult{}, err
	}

	vaultLogger := logger.WithVault(r.logger, vaultID)
	vaultLogger.Info().
		Str("depositor", depositor.String()).
		Int64("amount", amount).
		Int64("reward_minted", result.RewardMinted).
		Msg("Routed arbitrage profit")
	return result, nil
}

// claimCooldown takes the depositor's slot for this vault, failing if it is
// already held. Redis being down degrades to allowing the deposit; the
// throttle is an abuse guard, not an accounting invariant.
func (r *Router) claimCooldown(ctx context.Context, depositor solana.PublicKey, vaultID uint) error {
	key := cooldownKey(depositor, vaultID)
	ok, err := r.redis.SetNX(ctx, key, r.now().Unix(), r.cooldown).Result()
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Cooldown check unavailable, allowing deposit")
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: %s vault %d", ErrDepositThrottled, depositor, vaultID)
	}
	return nil
}

func (r *Router) releaseCooldown(ctx context.Context, depositor solana.PublicKey, vaultID uint) {
	if err := r.redis.Del(ctx, cooldownKey(depositor, vaultID)).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to release cooldown slot")
	}
}

func cooldownKey(depositor solana.PublicKey, vaultID uint) string {
	return fmt.Sprintf("arb_cooldown:%d:%s", vaultID, depositor.String())
}
