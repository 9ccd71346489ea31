package mappers

import (
	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/mapper"
)

// CredentialMapper handles the conversion between domain entities and
// persistence models.
type CredentialMapper interface {
	ToModel(entity *calendarsync.OAuthCredential) *models.CredentialModel
	ToDomain(model *models.CredentialModel) *calendarsync.OAuthCredential
	ToDomainList(models []*models.CredentialModel) []*calendarsync.OAuthCredential
}

type credentialMapper struct{}

// NewCredentialMapper creates a new CredentialMapper.
func NewCredentialMapper() CredentialMapper {
	return &credentialMapper{}
}

func (m *credentialMapper) ToModel(entity *calendarsync.OAuthCredential) *models.CredentialModel {
	if entity == nil {
		return nil
	}
	return &models.CredentialModel{
		ID:            entity.ID,
		UserID:        entity.UserID,
		AccessToken:   entity.AccessToken,
		RefreshToken:  entity.RefreshToken,
		ExpiresAt:     entity.ExpiresAt,
		Scope:         entity.Scope,
		Valid:         entity.Valid,
		LastRefreshAt: entity.LastRefreshAt,
		LastUsedAt:    entity.LastUsedAt,
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     entity.UpdatedAt,
	}
}

func (m *credentialMapper) ToDomain(model *models.CredentialModel) *calendarsync.OAuthCredential {
	if model == nil {
		return nil
	}
	return &calendarsync.OAuthCredential{
		ID:            model.ID,
		UserID:        model.UserID,
		AccessToken:   model.AccessToken,
		RefreshToken:  model.RefreshToken,
		ExpiresAt:     model.ExpiresAt,
		Scope:         model.Scope,
		Valid:         model.Valid,
		LastRefreshAt: model.LastRefreshAt,
		LastUsedAt:    model.LastUsedAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func (m *credentialMapper) ToDomainList(items []*models.CredentialModel) []*calendarsync.OAuthCredential {
	return mapper.MapSlicePtr(items, m.ToDomain)
}
