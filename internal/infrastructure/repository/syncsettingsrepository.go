package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/persistence/mappers"
	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/errors"
)

// SyncSettingsRepository implements the calendarsync.SettingsRepository
// interface using GORM with Model/Mapper separation.
type SyncSettingsRepository struct {
	db     *gorm.DB
	mapper mappers.SyncSettingsMapper
}

// NewSyncSettingsRepository creates a new SyncSettingsRepository.
func NewSyncSettingsRepository(db *gorm.DB) calendarsync.SettingsRepository {
	return &SyncSettingsRepository{
		db:     db,
		mapper: mappers.NewSyncSettingsMapper(),
	}
}

// Save upserts the settings for their user.
func (r *SyncSettingsRepository) Save(ctx context.Context, settings *calendarsync.SyncSettings) error {
	model := r.mapper.ToModel(settings)

	var existing models.SyncSettingsModel
	err := r.db.WithContext(ctx).Where("user_id = ?", settings.UserID).First(&existing).Error
	switch {
	case err == nil:
		model.ID = existing.ID
		model.CreatedAt = existing.CreatedAt
	case err != gorm.ErrRecordNotFound:
		return fmt.Errorf("failed to look up sync settings: %w", err)
	}

	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return r.Save(ctx, settings)
		}
		return fmt.Errorf("failed to save sync settings: %w", err)
	}
	settings.ID = model.ID
	return nil
}

func (r *SyncSettingsRepository) Update(ctx context.Context, settings *calendarsync.SyncSettings) error {
	model := r.mapper.ToModel(settings)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update sync settings: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("sync settings not found")
	}
	return nil
}

func (r *SyncSettingsRepository) GetByUserID(ctx context.Context, userID string) (*calendarsync.SyncSettings, error) {
	var model models.SyncSettingsModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("sync settings not found")
		}
		return nil, fmt.Errorf("failed to get sync settings by user ID: %w", err)
	}
	return r.mapper.ToDomain(&model), nil
}

func (r *SyncSettingsRepository) GetByChannel(ctx context.Context, channelID, resourceID string) (*calendarsync.SyncSettings, error) {
	var model models.SyncSettingsModel
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND channel_resource_id = ?", channelID, resourceID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("no settings for webhook channel")
		}
		return nil, fmt.Errorf("failed to get sync settings by channel: %w", err)
	}
	return r.mapper.ToDomain(&model), nil
}

func (r *SyncSettingsRepository) ListExpiringChannels(ctx context.Context, before time.Time) ([]*calendarsync.SyncSettings, error) {
	var settingsModels []*models.SyncSettingsModel
	err := r.db.WithContext(ctx).
		Where("enabled = ? AND channel_id <> '' AND channel_expires_at IS NOT NULL AND channel_expires_at < ?", true, before).
		Find(&settingsModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring channels: %w", err)
	}
	return r.mapper.ToDomainList(settingsModels), nil
}

func (r *SyncSettingsRepository) ListWithoutActiveChannel(ctx context.Context, now time.Time) ([]*calendarsync.SyncSettings, error) {
	var settingsModels []*models.SyncSettingsModel
	err := r.db.WithContext(ctx).
		Where("enabled = ? AND (channel_id = '' OR channel_expires_at IS NULL OR channel_expires_at < ?)", true, now).
		Find(&settingsModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list settings without active channel: %w", err)
	}
	return r.mapper.ToDomainList(settingsModels), nil
}

func (r *SyncSettingsRepository) DeleteByUserID(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.SyncSettingsModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete sync settings: %w", result.Error)
	}
	return nil
}
