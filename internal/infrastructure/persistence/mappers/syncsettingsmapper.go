package mappers

import (
	"encoding/json"

	"gorm.io/datatypes"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/mapper"
)

// SyncSettingsMapper handles the conversion between domain entities and
// persistence models.
type SyncSettingsMapper interface {
	ToModel(entity *calendarsync.SyncSettings) *models.SyncSettingsModel
	ToDomain(model *models.SyncSettingsModel) *calendarsync.SyncSettings
	ToDomainList(models []*models.SyncSettingsModel) []*calendarsync.SyncSettings
}

type syncSettingsMapper struct{}

// NewSyncSettingsMapper creates a new SyncSettingsMapper.
func NewSyncSettingsMapper() SyncSettingsMapper {
	return &syncSettingsMapper{}
}

func (m *syncSettingsMapper) ToModel(entity *calendarsync.SyncSettings) *models.SyncSettingsModel {
	if entity == nil {
		return nil
	}

	var categories datatypes.JSON
	if len(entity.AllowedCategories) > 0 {
		if raw, err := json.Marshal(entity.AllowedCategories); err == nil {
			categories = raw
		}
	}

	return &models.SyncSettingsModel{
		ID:                    entity.ID,
		UserID:                entity.UserID,
		Enabled:               entity.Enabled,
		Direction:             string(entity.Direction),
		CalendarID:            entity.CalendarID,
		SyncToken:             entity.SyncToken,
		ChannelID:             entity.ChannelID,
		ChannelResourceID:     entity.ChannelResourceID,
		ChannelSecret:         entity.ChannelSecret,
		ChannelExpiresAt:      entity.ChannelExpiresAt,
		LastFullSyncAt:        entity.LastFullSyncAt,
		LastIncrementalSyncAt: entity.LastIncrementalSyncAt,
		SyncAmounts:           entity.SyncAmounts,
		AllowedCategories:     categories,
		CreatedAt:             entity.CreatedAt,
		UpdatedAt:             entity.UpdatedAt,
	}
}

func (m *syncSettingsMapper) ToDomain(model *models.SyncSettingsModel) *calendarsync.SyncSettings {
	if model == nil {
		return nil
	}

	var categories []string
	if len(model.AllowedCategories) > 0 {
		// Malformed rows degrade to an empty allow-list rather than failing a read.
		_ = json.Unmarshal(model.AllowedCategories, &categories)
	}

	return &calendarsync.SyncSettings{
		ID:                    model.ID,
		UserID:                model.UserID,
		Enabled:               model.Enabled,
		Direction:             calendarsync.SyncDirection(model.Direction),
		CalendarID:            model.CalendarID,
		SyncToken:             model.SyncToken,
		ChannelID:             model.ChannelID,
		ChannelResourceID:     model.ChannelResourceID,
		ChannelSecret:         model.ChannelSecret,
		ChannelExpiresAt:      model.ChannelExpiresAt,
		LastFullSyncAt:        model.LastFullSyncAt,
		LastIncrementalSyncAt: model.LastIncrementalSyncAt,
		SyncAmounts:           model.SyncAmounts,
		AllowedCategories:     categories,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

func (m *syncSettingsMapper) ToDomainList(items []*models.SyncSettingsModel) []*calendarsync.SyncSettings {
	return mapper.MapSlicePtr(items, m.ToDomain)
}
