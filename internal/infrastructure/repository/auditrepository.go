package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/persistence/mappers"
	"aegiswallet/internal/infrastructure/persistence/models"
)

// AuditRepository implements the calendarsync.AuditRepository interface
// using GORM with Model/Mapper separation. Entries are append-only.
type AuditRepository struct {
	db     *gorm.DB
	mapper mappers.AuditEntryMapper
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *gorm.DB) calendarsync.AuditRepository {
	return &AuditRepository{
		db:     db,
		mapper: mappers.NewAuditEntryMapper(),
	}
}

func (r *AuditRepository) Create(ctx context.Context, entry *calendarsync.AuditEntry) error {
	model := r.mapper.ToModel(entry)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	entry.ID = model.ID
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*calendarsync.AuditEntry, error) {
	var entryModels []*models.AuditEntryModel
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return r.mapper.ToDomainList(entryModels), nil
}
