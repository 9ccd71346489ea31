package mappers

import (
	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/mapper"
)

// SyncMappingMapper handles the conversion between domain entities and
// persistence models.
type SyncMappingMapper interface {
	ToModel(entity *calendarsync.SyncMapping) *models.SyncMappingModel
	ToDomain(model *models.SyncMappingModel) *calendarsync.SyncMapping
	ToDomainList(models []*models.SyncMappingModel) []*calendarsync.SyncMapping
}

type syncMappingMapper struct{}

// NewSyncMappingMapper creates a new SyncMappingMapper.
func NewSyncMappingMapper() SyncMappingMapper {
	return &syncMappingMapper{}
}

func (m *syncMappingMapper) ToModel(entity *calendarsync.SyncMapping) *models.SyncMappingModel {
	if entity == nil {
		return nil
	}
	return &models.SyncMappingModel{
		ID:                 entity.ID(),
		UserID:             entity.UserID(),
		LocalEventID:       entity.LocalEventID(),
		ExternalEventID:    entity.ExternalEventID(),
		ExternalCalendarID: entity.ExternalCalendarID(),
		Status:             string(entity.Status()),
		Provenance:         string(entity.Provenance()),
		ETag:               entity.ETag(),
		Version:            entity.Version(),
		LastSyncedAt:       entity.LastSyncedAt(),
		LastModifiedAt:     entity.LastModifiedAt(),
		ErrorMessage:       entity.ErrorMessage(),
		CreatedAt:          entity.CreatedAt(),
		UpdatedAt:          entity.UpdatedAt(),
	}
}

func (m *syncMappingMapper) ToDomain(model *models.SyncMappingModel) *calendarsync.SyncMapping {
	if model == nil {
		return nil
	}
	return calendarsync.ReconstructSyncMapping(calendarsync.SyncMappingReconstructParams{
		ID:                 model.ID,
		UserID:             model.UserID,
		LocalEventID:       model.LocalEventID,
		ExternalEventID:    model.ExternalEventID,
		ExternalCalendarID: model.ExternalCalendarID,
		Status:             calendarsync.MappingStatus(model.Status),
		Provenance:         calendarsync.Provenance(model.Provenance),
		ETag:               model.ETag,
		Version:            model.Version,
		LastSyncedAt:       model.LastSyncedAt,
		LastModifiedAt:     model.LastModifiedAt,
		ErrorMessage:       model.ErrorMessage,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	})
}

func (m *syncMappingMapper) ToDomainList(items []*models.SyncMappingModel) []*calendarsync.SyncMapping {
	return mapper.MapSlicePtr(items, m.ToDomain)
}
