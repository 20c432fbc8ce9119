package positions

import (
	"context"

	"github.com/wnt/crucible/internal/models"
	"github.com/wnt/crucible/internal/store"
)

// Repository is the slice of the store the position manager depends on.
// Keeping it an interface here lets tests drive the manager against an
// in-memory substrate.
type Repository interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
	GetVault(ctx context.Context, id uint) (*models.Vault, error)
	SaveVault(ctx context.Context, v *models.Vault) error
	GetPool(ctx context.Context, id uint) (*models.LendingPool, error)
	SavePool(ctx context.Context, p *models.LendingPool) error
	GetPosition(ctx context.Context, id uint) (*models.Position, error)
	CreatePosition(ctx context.Context, pos *models.Position) error
	SavePosition(ctx context.Context, pos *models.Position) error
	NextNonce(ctx context.Context, owner string, vaultID uint) (uint64, error)
	OpenPositionsByOwner(ctx context.Context, owner string, vaultID *uint) ([]models.Position, error)
	RecordFeeEvent(ctx context.Context, event *models.FeeEvent) error
}

// gormRepository adapts *store.Store to the Repository interface; the only
// translation needed is re-wrapping the transaction callback.
type gormRepository struct {
	s *store.Store
}

// NewRepository wraps the concrete store.
func NewRepository(s *store.Store) Repository {
	return gormRepository{s: s}
}

func (g gormRepository) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	return g.s.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormRepository{s: tx})
	})
}

func (g gormRepository) GetVault(ctx context.Context, id uint) (*models.Vault, error) {
	return g.s.GetVault(ctx, id)
}

func (g gormRepository) SaveVault(ctx context.Context, v *models.Vault) error {
	return g.s.SaveVault(ctx, v)
}

func (g gormRepository) GetPool(ctx context.Context, id uint) (*models.LendingPool, error) {
	return g.s.GetPool(ctx, id)
}

func (g gormRepository) SavePool(ctx context.Context, p *models.LendingPool) error {
	return g.s.SavePool(ctx, p)
}

func (g gormRepository) GetPosition(ctx context.Context, id uint) (*models.Position, error) {
	return g.s.GetPosition(ctx, id)
}

func (g gormRepository) CreatePosition(ctx context.Context, pos *models.Position) error {
	return g.s.CreatePosition(ctx, pos)
}

func (g gormRepository) SavePosition(ctx context.Context, pos *models.Position) error {
	return g.s.SavePosition(ctx, pos)
}

func (g gormRepository) NextNonce(ctx context.Context, owner string, vaultID uint) (uint64, error) {
	return g.s.NextNonce(ctx, owner, vaultID)
}

func (g gormRepository) OpenPositionsByOwner(ctx context.Context, owner string, vaultID *uint) ([]models.Position, error) {
	return g.s.OpenPositionsByOwner(ctx, owner, vaultID)
}

func (g gormRepository) RecordFeeEvent(ctx context.Context, event *models.FeeEvent) error {
	return g.s.RecordFeeEvent(ctx, event)
}
