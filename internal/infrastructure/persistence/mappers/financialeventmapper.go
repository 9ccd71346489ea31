package mappers

import (
	"aegiswallet/internal/domain/finance"
	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/mapper"
)

// FinancialEventMapper handles the conversion between domain entities and
// persistence models.
type FinancialEventMapper interface {
	ToModel(entity *finance.Event) *models.FinancialEventModel
	ToDomain(model *models.FinancialEventModel) *finance.Event
	ToDomainList(models []*models.FinancialEventModel) []*finance.Event
}

type financialEventMapper struct{}

// NewFinancialEventMapper creates a new FinancialEventMapper.
func NewFinancialEventMapper() FinancialEventMapper {
	return &financialEventMapper{}
}

func (m *financialEventMapper) ToModel(entity *finance.Event) *models.FinancialEventModel {
	if entity == nil {
		return nil
	}
	return &models.FinancialEventModel{
		ID:          entity.ID,
		UserID:      entity.UserID,
		Title:       entity.Title,
		Description: entity.Description,
		AmountCents: entity.AmountCents,
		Income:      entity.Income,
		Category:    entity.Category,
		AllDay:      entity.AllDay,
		StartAt:     entity.StartAt,
		EndAt:       entity.EndAt,
		CreatedAt:   entity.CreatedAt,
		UpdatedAt:   entity.UpdatedAt,
	}
}

func (m *financialEventMapper) ToDomain(model *models.FinancialEventModel) *finance.Event {
	if model == nil {
		return nil
	}
	return &finance.Event{
		ID:          model.ID,
		UserID:      model.UserID,
		Title:       model.Title,
		Description: model.Description,
		AmountCents: model.AmountCents,
		Income:      model.Income,
		Category:    model.Category,
		AllDay:      model.AllDay,
		StartAt:     model.StartAt,
		EndAt:       model.EndAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func (m *financialEventMapper) ToDomainList(items []*models.FinancialEventModel) []*finance.Event {
	return mapper.MapSlicePtr(items, m.ToDomain)
}
