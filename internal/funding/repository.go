package funding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"invobridge/funding-portal-backend/internal/funding/engine"
)

// Repository persists pool and ledger snapshots coming out of the engine. The
// engine is the source of truth while the process runs; these rows exist to
// survive restarts and to feed the read models.
type Repository interface {
	SavePool(ctx context.Context, pool *engine.Pool) error
	SaveInvestment(ctx context.Context, pool *engine.Pool, inv *engine.Investment) error
	SaveSettlement(ctx context.Context, pool *engine.Pool, investments []*engine.Investment) error
	LoadPools(ctx context.Context) ([]*engine.Pool, error)
	LoadInvestments(ctx context.Context, poolID uuid.UUID) ([]*engine.Investment, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) SavePool(ctx context.Context, pool *engine.Pool) error {
	if err := r.db.WithContext(ctx).Save(pool).Error; err != nil {
		return fmt.Errorf("failed to save pool: %w", err)
	}
	return nil
}

// SaveInvestment writes the investment and the updated pool counters in one
// transaction so a crash can never persist one without the other.
func (r *gormRepository) SaveInvestment(ctx context.Context, pool *engine.Pool, inv *engine.Investment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		return tx.Save(pool).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save investment: %w", err)
	}
	return nil
}

// SaveSettlement writes the closed pool and every settled investment in one
// transaction.
func (r *gormRepository) SaveSettlement(ctx context.Context, pool *engine.Pool, investments []*engine.Investment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(pool).Error; err != nil {
			return err
		}
		for _, inv := range investments {
			if err := tx.Save(inv).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save settlement: %w", err)
	}
	return nil
}

func (r *gormRepository) LoadPools(ctx context.Context) ([]*engine.Pool, error) {
	var pools []*engine.Pool
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&pools).Error; err != nil {
		return nil, fmt.Errorf("failed to load pools: %w", err)
	}
	return pools, nil
}

func (r *gormRepository) LoadInvestments(ctx context.Context, poolID uuid.UUID) ([]*engine.Investment, error) {
	var investments []*engine.Investment
	err := r.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("invested_at ASC, created_at ASC").
		Find(&investments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load investments: %w", err)
	}
	return investments, nil
}
