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

// CredentialRepository implements the calendarsync.CredentialRepository
// interface using GORM with Model/Mapper separation.
type CredentialRepository struct {
	db     *gorm.DB
	mapper mappers.CredentialMapper
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db *gorm.DB) calendarsync.CredentialRepository {
	return &CredentialRepository{
		db:     db,
		mapper: mappers.NewCredentialMapper(),
	}
}

// Save upserts the credential for its user. The unique index on user_id
// guarantees at most one row per user; a concurrent insert race collapses
// into an update.
func (r *CredentialRepository) Save(ctx context.Context, credential *calendarsync.OAuthCredential) error {
	model := r.mapper.ToModel(credential)

	var existing models.CredentialModel
	err := r.db.WithContext(ctx).Where("user_id = ?", credential.UserID).First(&existing).Error
	switch {
	case err == nil:
		model.ID = existing.ID
		model.CreatedAt = existing.CreatedAt
	case err != gorm.ErrRecordNotFound:
		return fmt.Errorf("failed to look up credential: %w", err)
	}

	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return r.Save(ctx, credential)
		}
		return fmt.Errorf("failed to save credential: %w", err)
	}
	credential.ID = model.ID
	return nil
}

func (r *CredentialRepository) GetByUserID(ctx context.Context, userID string) (*calendarsync.OAuthCredential, error) {
	var model models.CredentialModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("credential not found")
		}
		return nil, fmt.Errorf("failed to get credential by user ID: %w", err)
	}
	return r.mapper.ToDomain(&model), nil
}

func (r *CredentialRepository) Update(ctx context.Context, credential *calendarsync.OAuthCredential) error {
	model := r.mapper.ToModel(credential)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update credential: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("credential not found")
	}
	return nil
}

func (r *CredentialRepository) DeleteByUserID(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CredentialModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete credential: %w", result.Error)
	}
	return nil
}
