package mappers

import (
	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/mapper"
)

// SyncQueueItemMapper handles the conversion between domain entities and
// persistence models.
type SyncQueueItemMapper interface {
	ToModel(entity *calendarsync.SyncQueueItem) *models.SyncQueueItemModel
	ToDomain(model *models.SyncQueueItemModel) *calendarsync.SyncQueueItem
	ToDomainList(models []*models.SyncQueueItemModel) []*calendarsync.SyncQueueItem
}

type syncQueueItemMapper struct{}

// NewSyncQueueItemMapper creates a new SyncQueueItemMapper.
func NewSyncQueueItemMapper() SyncQueueItemMapper {
	return &syncQueueItemMapper{}
}

func (m *syncQueueItemMapper) ToModel(entity *calendarsync.SyncQueueItem) *models.SyncQueueItemModel {
	if entity == nil {
		return nil
	}
	return &models.SyncQueueItemModel{
		ID:           entity.ID(),
		UserID:       entity.UserID(),
		LocalEventID: entity.LocalEventID(),
		Direction:    string(entity.Direction()),
		Status:       string(entity.Status()),
		Priority:     entity.Priority(),
		RetryCount:   entity.RetryCount(),
		MaxRetries:   entity.MaxRetries(),
		NextRunAt:    entity.NextRunAt(),
		LastError:    entity.LastError(),
		CreatedAt:    entity.CreatedAt(),
		CompletedAt:  entity.CompletedAt(),
		UpdatedAt:    entity.UpdatedAt(),
	}
}

func (m *syncQueueItemMapper) ToDomain(model *models.SyncQueueItemModel) *calendarsync.SyncQueueItem {
	if model == nil {
		return nil
	}
	return calendarsync.ReconstructSyncQueueItem(calendarsync.SyncQueueItemReconstructParams{
		ID:           model.ID,
		UserID:       model.UserID,
		LocalEventID: model.LocalEventID,
		Direction:    calendarsync.JobDirection(model.Direction),
		Status:       calendarsync.QueueStatus(model.Status),
		Priority:     model.Priority,
		RetryCount:   model.RetryCount,
		MaxRetries:   model.MaxRetries,
		NextRunAt:    model.NextRunAt,
		LastError:    model.LastError,
		CreatedAt:    model.CreatedAt,
		CompletedAt:  model.CompletedAt,
		UpdatedAt:    model.UpdatedAt,
	})
}

func (m *syncQueueItemMapper) ToDomainList(items []*models.SyncQueueItemModel) []*calendarsync.SyncQueueItem {
	return mapper.MapSlicePtr(items, m.ToDomain)
}
