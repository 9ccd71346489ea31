package usecases

import (
	"context"
	"fmt"
	"time"

	"aegiswallet/internal/domain/calendarsync"
	apperrors "aegiswallet/internal/shared/errors"
)

type GetSyncStatusResult struct {
	Connected             bool
	CredentialValid       bool
	Enabled               bool
	Direction             calendarsync.SyncDirection
	CalendarID            string
	LastFullSyncAt        *time.Time
	LastIncrementalSyncAt *time.Time
	PendingJobs           int64
	ChannelActive         bool
	ChannelExpiresAt      *time.Time
}

// GetSyncStatusUseCase reports a user's sync connection state.
type GetSyncStatusUseCase struct {
	credentialRepo calendarsync.CredentialRepository
	settingsRepo   calendarsync.SettingsRepository
	queueRepo      calendarsync.QueueRepository
}

// NewGetSyncStatusUseCase creates a GetSyncStatusUseCase.
func NewGetSyncStatusUseCase(
	credentialRepo calendarsync.CredentialRepository,
	settingsRepo calendarsync.SettingsRepository,
	queueRepo calendarsync.QueueRepository,
) *GetSyncStatusUseCase {
	return &GetSyncStatusUseCase{
		credentialRepo: credentialRepo,
		settingsRepo:   settingsRepo,
		queueRepo:      queueRepo,
	}
}

func (uc *GetSyncStatusUseCase) Execute(ctx context.Context, userID string) (*GetSyncStatusResult, error) {
	result := &GetSyncStatusResult{}

	credential, err := uc.credentialRepo.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	result.Connected = true
	result.CredentialValid = credential.Valid

	settings, err := uc.settingsRepo.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to load sync settings: %w", err)
	}
	result.Enabled = settings.Enabled
	result.Direction = settings.Direction
	result.CalendarID = settings.CalendarID
	result.LastFullSyncAt = settings.LastFullSyncAt
	result.LastIncrementalSyncAt = settings.LastIncrementalSyncAt
	result.ChannelActive = settings.HasChannel()
	result.ChannelExpiresAt = settings.ChannelExpiresAt

	pending, err := uc.queueRepo.CountPendingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending jobs: %w", err)
	}
	result.PendingJobs = pending
	return result, nil
}
