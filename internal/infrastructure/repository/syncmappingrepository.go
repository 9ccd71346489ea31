package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/persistence/mappers"
	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/errors"
)

// SyncMappingRepository implements the calendarsync.MappingRepository
// interface using GORM with Model/Mapper separation.
type SyncMappingRepository struct {
	db     *gorm.DB
	mapper mappers.SyncMappingMapper
}

// NewSyncMappingRepository creates a new SyncMappingRepository.
func NewSyncMappingRepository(db *gorm.DB) calendarsync.MappingRepository {
	return &SyncMappingRepository{
		db:     db,
		mapper: mappers.NewSyncMappingMapper(),
	}
}

// Create inserts a new mapping. A duplicate on either unique pair is
// reported as a conflict so callers can switch to the update path.
func (r *SyncMappingRepository) Create(ctx context.Context, mapping *calendarsync.SyncMapping) error {
	model := r.mapper.ToModel(mapping)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError("mapping already exists for this event")
		}
		return fmt.Errorf("failed to create sync mapping: %w", err)
	}
	mapping.SetID(model.ID)
	return nil
}

func (r *SyncMappingRepository) Update(ctx context.Context, mapping *calendarsync.SyncMapping) error {
	model := r.mapper.ToModel(mapping)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update sync mapping: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("sync mapping not found")
	}
	return nil
}

func (r *SyncMappingRepository) GetByLocalEventID(ctx context.Context, userID, localEventID string) (*calendarsync.SyncMapping, error) {
	var model models.SyncMappingModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND local_event_id = ?", userID, localEventID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("sync mapping not found")
		}
		return nil, fmt.Errorf("failed to get sync mapping by local event: %w", err)
	}
	return r.mapper.ToDomain(&model), nil
}

func (r *SyncMappingRepository) GetByExternalEventID(ctx context.Context, userID, externalEventID string) (*calendarsync.SyncMapping, error) {
	var model models.SyncMappingModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND external_event_id = ?", userID, externalEventID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("sync mapping not found")
		}
		return nil, fmt.Errorf("failed to get sync mapping by external event: %w", err)
	}
	return r.mapper.ToDomain(&model), nil
}

func (r *SyncMappingRepository) ListByUser(ctx context.Context, userID string) ([]*calendarsync.SyncMapping, error) {
	var mappingModels []*models.SyncMappingModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&mappingModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync mappings: %w", err)
	}
	return r.mapper.ToDomainList(mappingModels), nil
}

func (r *SyncMappingRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SyncMappingModel{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete sync mapping: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("sync mapping not found")
	}
	return nil
}

func (r *SyncMappingRepository) DeleteByUserID(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.SyncMappingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete sync mappings: %w", result.Error)
	}
	return nil
}
