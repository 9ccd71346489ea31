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

// SyncQueueRepository implements the calendarsync.QueueRepository
// interface using GORM with Model/Mapper separation.
type SyncQueueRepository struct {
	db     *gorm.DB
	mapper mappers.SyncQueueItemMapper
}

// NewSyncQueueRepository creates a new SyncQueueRepository.
func NewSyncQueueRepository(db *gorm.DB) calendarsync.QueueRepository {
	return &SyncQueueRepository{
		db:     db,
		mapper: mappers.NewSyncQueueItemMapper(),
	}
}

func (r *SyncQueueRepository) Create(ctx context.Context, item *calendarsync.SyncQueueItem) error {
	model := r.mapper.ToModel(item)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create queue item: %w", err)
	}
	item.SetID(model.ID)
	return nil
}

func (r *SyncQueueRepository) Update(ctx context.Context, item *calendarsync.SyncQueueItem) error {
	model := r.mapper.ToModel(item)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update queue item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("queue item not found")
	}
	return nil
}

// ClaimDue selects due pending items ordered by priority then age and marks
// them processing inside one transaction. The conditional update keeps two
// workers from claiming the same row; rows lost to a concurrent claim are
// skipped.
func (r *SyncQueueRepository) ClaimDue(ctx context.Context, limit int, now time.Time) ([]*calendarsync.SyncQueueItem, error) {
	var claimed []*models.SyncQueueItemModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []*models.SyncQueueItemModel
		err := tx.
			Where("status = ? AND next_run_at <= ?", string(calendarsync.QueueStatusPending), now).
			Order("priority DESC, created_at ASC").
			Limit(limit).
			Find(&candidates).Error
		if err != nil {
			return fmt.Errorf("failed to select due queue items: %w", err)
		}

		for _, candidate := range candidates {
			result := tx.Model(&models.SyncQueueItemModel{}).
				Where("id = ? AND status = ?", candidate.ID, string(calendarsync.QueueStatusPending)).
				Updates(map[string]interface{}{
					"status":     string(calendarsync.QueueStatusProcessing),
					"updated_at": now,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to claim queue item %d: %w", candidate.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				continue
			}
			candidate.Status = string(calendarsync.QueueStatusProcessing)
			candidate.UpdatedAt = now
			claimed = append(claimed, candidate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.mapper.ToDomainList(claimed), nil
}

func (r *SyncQueueRepository) CountPendingByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SyncQueueItemModel{}).
		Where("user_id = ? AND status IN ?", userID, []string{
			string(calendarsync.QueueStatusPending),
			string(calendarsync.QueueStatusProcessing),
		}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending queue items: %w", err)
	}
	return count, nil
}

func (r *SyncQueueRepository) DeleteOpenByUserID(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{
			string(calendarsync.QueueStatusPending),
			string(calendarsync.QueueStatusProcessing),
		}).
		Delete(&models.SyncQueueItemModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete open queue items: %w", result.Error)
	}
	return nil
}
