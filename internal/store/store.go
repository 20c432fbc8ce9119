package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wnt/crucible/internal/metrics"
	"github.com/wnt/crucible/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Store is the repository over the authoritative vault, pool and position
// records. Inside WithTx every read takes a row lock, so each engine
// operation is one serialized read-modify-write.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx runs fn against a transaction-scoped store, committing only if fn
// returns nil. Engine operations are all-or-nothing: a failure anywhere
// rolls back every record the operation touched.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
	if err != nil {
		metrics.RecordDatabaseOperation("transaction", "failed")
		return err
	}
	metrics.RecordDatabaseOperation("transaction", "success")
	return nil
}

func (s *Store) locked() *gorm.DB {
	return s.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GetVault loads a vault by id, locking the row inside a transaction.
func (s *Store) GetVault(ctx context.Context, id uint) (*models.Vault, error) {
	var v models.Vault
	if err := s.locked().WithContext(ctx).First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: vault %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load vault %d: %w", id, err)
	}
	return &v, nil
}

// GetVaultByBaseMint loads a vault by its base asset mint.
func (s *Store) GetVaultByBaseMint(ctx context.Context, mint string) (*models.Vault, error) {
	var v models.Vault
	err := s.locked().WithContext(ctx).Where("base_mint = ?", mint).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: vault for mint %s", ErrNotFound, mint)
		}
		return nil, fmt.Errorf("failed to load vault for mint %s: %w", mint, err)
	}
	return &v, nil
}

// SaveVault persists a mutated vault record.
func (s *Store) SaveVault(ctx context.Context, v *models.Vault) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("failed to save vault %d: %w", v.ID, err)
	}
	return nil
}

// GetPool loads the lending pool, locking the row inside a transaction.
func (s *Store) GetPool(ctx context.Context, id uint) (*models.LendingPool, error) {
	var p models.LendingPool
	if err := s.locked().WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: lending pool %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load lending pool %d: %w", id, err)
	}
	return &p, nil
}

// SavePool persists a mutated pool record.
func (s *Store) SavePool(ctx context.Context, p *models.LendingPool) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to save lending pool %d: %w", p.ID, err)
	}
	return nil
}

// GetPosition loads a position by id, locking the row inside a transaction.
func (s *Store) GetPosition(ctx context.Context, id uint) (*models.Position, error) {
	var pos models.Position
	if err := s.locked().WithContext(ctx).First(&pos, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: position %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load position %d: %w", id, err)
	}
	return &pos, nil
}

// CreatePosition inserts a new position record.
func (s *Store) CreatePosition(ctx context.Context, pos *models.Position) error {
	if err := s.db.WithContext(ctx).Create(pos).Error; err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// SavePosition persists a mutated position record.
func (s *Store) SavePosition(ctx context.Context, pos *models.Position) error {
	if err := s.db.WithContext(ctx).Save(pos).Error; err != nil {
		return fmt.Errorf("failed to save position %d: %w", pos.ID, err)
	}
	return nil
}

// NextNonce returns the next free nonce for an owner within a vault. The
// explicit index replaces the original client's sequential address probing.
func (s *Store) NextNonce(ctx context.Context, owner string, vaultID uint) (uint64, error) {
	var maxNonce *uint64
	err := s.db.WithContext(ctx).Model(&models.Position{}).
		Where("owner = ? AND vault_id = ?", owner, vaultID).
		Select("MAX(nonce)").Scan(&maxNonce).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute next nonce: %w", err)
	}
	if maxNonce == nil {
		return 0, nil
	}
	return *maxNonce + 1, nil
}

// OpenPositionsByOwner lists an owner's open positions, optionally filtered
// by vault.
func (s *Store) OpenPositionsByOwner(ctx context.Context, owner string, vaultID *uint) ([]models.Position, error) {
	query := s.db.WithContext(ctx).
		Where("owner = ? AND is_open = ?", owner, true).
		Order("vault_id, nonce")
	if vaultID != nil {
		query = query.Where("vault_id = ?", *vaultID)
	}
	var positions []models.Position
	if err := query.Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("failed to list open positions for %s: %w", owner, err)
	}
	return positions, nil
}

// OpenLeveragedPositions lists open leveraged positions in id order,
// starting after the given id. The health sweep walks this set in pages so
// a restart can resume from its cursor.
func (s *Store) OpenLeveragedPositions(ctx context.Context, afterID uint, limit int) ([]models.Position, error) {
	var positions []models.Position
	err := s.db.WithContext(ctx).
		Where("kind = ? AND is_open = ? AND id > ?", models.KindLeveragedLP, true, afterID).
		Order("id").
		Limit(limit).
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list leveraged positions: %w", err)
	}
	return positions, nil
}

// RecordFeeEvent appends a fee split to the journal.
func (s *Store) RecordFeeEvent(ctx context.Context, event *models.FeeEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to record fee event: %w", err)
	}
	return nil
}

// VaultFeeTotals sums the journal for one vault.
func (s *Store) VaultFeeTotals(ctx context.Context, vaultID uint) (vaultShare, treasuryShare int64, err error) {
	row := struct {
		VaultShare    int64
		TreasuryShare int64
	}{}
	err = s.db.WithContext(ctx).Model(&models.FeeEvent{}).
		Where("vault_id = ?", vaultID).
		Select("COALESCE(SUM(vault_share),0) AS vault_share, COALESCE(SUM(treasury_share),0) AS treasury_share").
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum fee events for vault %d: %w", vaultID, err)
	}
	return row.VaultShare, row.TreasuryShare, nil
}
