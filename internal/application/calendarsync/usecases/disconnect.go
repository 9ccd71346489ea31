package usecases

import (
	"context"
	"fmt"

	"aegiswallet/internal/domain/calendarsync"
	apperrors "aegiswallet/internal/shared/errors"
	"aegiswallet/internal/shared/logger"
)

type DisconnectCommand struct {
	UserID string
}

// DisconnectUseCase severs a user's calendar connection: the token grant
// is revoked remotely, the webhook channel is stopped, open jobs and
// mappings are dropped, and the credential and settings are deleted.
// Local financial events are kept.
type DisconnectUseCase struct {
	oauth          calendarsync.OAuthProvider
	credentialRepo calendarsync.CredentialRepository
	settingsRepo   calendarsync.SettingsRepository
	mappingRepo    calendarsync.MappingRepository
	queueRepo      calendarsync.QueueRepository
	channels       *RegisterChannelUseCase
	audit          *AuditRecorder
	logger         logger.Interface
}

// NewDisconnectUseCase creates a DisconnectUseCase.
func NewDisconnectUseCase(
	oauth calendarsync.OAuthProvider,
	credentialRepo calendarsync.CredentialRepository,
	settingsRepo calendarsync.SettingsRepository,
	mappingRepo calendarsync.MappingRepository,
	queueRepo calendarsync.QueueRepository,
	channels *RegisterChannelUseCase,
	audit *AuditRecorder,
	logger logger.Interface,
) *DisconnectUseCase {
	return &DisconnectUseCase{
		oauth:          oauth,
		credentialRepo: credentialRepo,
		settingsRepo:   settingsRepo,
		mappingRepo:    mappingRepo,
		queueRepo:      queueRepo,
		channels:       channels,
		audit:          audit,
		logger:         logger,
	}
}

func (uc *DisconnectUseCase) Execute(ctx context.Context, cmd DisconnectCommand) error {
	credential, err := uc.credentialRepo.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return apperrors.NewNotFoundError("no calendar connection for user")
		}
		return fmt.Errorf("failed to load credential: %w", err)
	}

	// Remote revocation is best effort; a grant Google already dropped
	// must not block the local cascade.
	token := credential.RefreshToken
	if token == "" {
		token = credential.AccessToken
	}
	if err := uc.oauth.Revoke(ctx, token); err != nil {
		uc.logger.Warnw("failed to revoke token remotely", "error", err, "user_id", cmd.UserID)
	}

	// Best effort; a channel the provider already dropped must not block
	// the disconnect.
	if err := uc.channels.StopChannel(ctx, cmd.UserID); err != nil {
		uc.logger.Warnw("failed to stop webhook channel on disconnect", "error", err, "user_id", cmd.UserID)
	}

	if err := uc.queueRepo.DeleteOpenByUserID(ctx, cmd.UserID); err != nil {
		return fmt.Errorf("failed to drop open sync jobs: %w", err)
	}
	if err := uc.mappingRepo.DeleteByUserID(ctx, cmd.UserID); err != nil {
		return fmt.Errorf("failed to drop sync mappings: %w", err)
	}
	if err := uc.settingsRepo.DeleteByUserID(ctx, cmd.UserID); err != nil {
		return fmt.Errorf("failed to drop sync settings: %w", err)
	}
	if err := uc.credentialRepo.DeleteByUserID(ctx, cmd.UserID); err != nil {
		return fmt.Errorf("failed to drop credential: %w", err)
	}

	uc.audit.Record(ctx, cmd.UserID, calendarsync.AuditActionDisconnected, true, nil)
	uc.logger.Infow("calendar disconnected", "user_id", cmd.UserID)
	return nil
}
