package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"aegiswallet/internal/domain/finance"
	"aegiswallet/internal/infrastructure/persistence/mappers"
	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/errors"
)

// FinancialEventRepository implements the finance.EventRepository interface
// using GORM with Model/Mapper separation.
type FinancialEventRepository struct {
	db     *gorm.DB
	mapper mappers.FinancialEventMapper
}

// NewFinancialEventRepository creates a new FinancialEventRepository.
func NewFinancialEventRepository(db *gorm.DB) finance.EventRepository {
	return &FinancialEventRepository{
		db:     db,
		mapper: mappers.NewFinancialEventMapper(),
	}
}

func (r *FinancialEventRepository) Create(ctx context.Context, event *finance.Event) error {
	model := r.mapper.ToModel(event)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError("financial event already exists")
		}
		return fmt.Errorf("failed to create financial event: %w", err)
	}
	return nil
}

func (r *FinancialEventRepository) Update(ctx context.Context, event *finance.Event) error {
	model := r.mapper.ToModel(event)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update financial event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("financial event not found")
	}
	return nil
}

func (r *FinancialEventRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FinancialEventModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete financial event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("financial event not found")
	}
	return nil
}

func (r *FinancialEventRepository) FindByID(ctx context.Context, id string) (*finance.Event, error) {
	var model models.FinancialEventModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("financial event not found")
		}
		return nil, fmt.Errorf("failed to get financial event: %w", err)
	}
	return r.mapper.ToDomain(&model), nil
}

func (r *FinancialEventRepository) FindByUser(ctx context.Context, userID string) ([]*finance.Event, error) {
	var eventModels []*models.FinancialEventModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_at ASC").
		Find(&eventModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list financial events: %w", err)
	}
	return r.mapper.ToDomainList(eventModels), nil
}
