package mappers

import (
	"encoding/json"

	"gorm.io/datatypes"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/mapper"
)

// AuditEntryMapper handles the conversion between domain entities and
// persistence models.
type AuditEntryMapper interface {
	ToModel(entity *calendarsync.AuditEntry) *models.AuditEntryModel
	ToDomain(model *models.AuditEntryModel) *calendarsync.AuditEntry
	ToDomainList(models []*models.AuditEntryModel) []*calendarsync.AuditEntry
}

type auditEntryMapper struct{}

// NewAuditEntryMapper creates a new AuditEntryMapper.
func NewAuditEntryMapper() AuditEntryMapper {
	return &auditEntryMapper{}
}

func (m *auditEntryMapper) ToModel(entity *calendarsync.AuditEntry) *models.AuditEntryModel {
	if entity == nil {
		return nil
	}

	var details datatypes.JSON
	if len(entity.Details) > 0 {
		if raw, err := json.Marshal(entity.Details); err == nil {
			details = raw
		}
	}

	return &models.AuditEntryModel{
		ID:        entity.ID,
		UserID:    entity.UserID,
		Action:    entity.Action,
		Success:   entity.Success,
		Details:   details,
		CreatedAt: entity.CreatedAt,
	}
}

func (m *auditEntryMapper) ToDomain(model *models.AuditEntryModel) *calendarsync.AuditEntry {
	if model == nil {
		return nil
	}

	var details map[string]interface{}
	if len(model.Details) > 0 {
		_ = json.Unmarshal(model.Details, &details)
	}

	return &calendarsync.AuditEntry{
		ID:        model.ID,
		UserID:    model.UserID,
		Action:    model.Action,
		Success:   model.Success,
		Details:   details,
		CreatedAt: model.CreatedAt,
	}
}

func (m *auditEntryMapper) ToDomainList(items []*models.AuditEntryModel) []*calendarsync.AuditEntry {
	return mapper.MapSlicePtr(items, m.ToDomain)
}
