package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("payout instruction not found")

type Repository interface {
	CreateBatch(ctx context.Context, instructions []*PayoutInstruction) error
	GetByID(ctx context.Context, id uuid.UUID) (*PayoutInstruction, error)
	ListByPool(ctx context.Context, poolID uuid.UUID) ([]*PayoutInstruction, error)
	Confirm(ctx context.Context, id uuid.UUID, reference string) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateBatch(ctx context.Context, instructions []*PayoutInstruction) error {
	if len(instructions) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&instructions).Error; err != nil {
		return fmt.Errorf("failed to create payout instructions: %w", err)
	}
	return nil
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*PayoutInstruction, error) {
	var instruction PayoutInstruction
	err := r.db.WithContext(ctx).First(&instruction, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout instruction: %w", err)
	}
	return &instruction, nil
}

func (r *gormRepository) ListByPool(ctx context.Context, poolID uuid.UUID) ([]*PayoutInstruction, error) {
	var instructions []*PayoutInstruction
	err := r.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("created_at ASC").
		Find(&instructions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payout instructions: %w", err)
	}
	return instructions, nil
}

func (r *gormRepository) Confirm(ctx context.Context, id uuid.UUID, reference string) error {
	result := r.db.WithContext(ctx).Model(&PayoutInstruction{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":       StatusConfirmed,
			"reference":    reference,
			"confirmed_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to confirm payout instruction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
