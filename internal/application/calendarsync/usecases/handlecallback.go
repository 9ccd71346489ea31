package usecases

import (
	"context"
	"fmt"

	"aegiswallet/internal/domain/calendarsync"
	apperrors "aegiswallet/internal/shared/errors"
	"aegiswallet/internal/shared/logger"
)

// DefaultCalendarID is the external calendar used until the user picks
// another one.
const DefaultCalendarID = "primary"

type HandleConnectCallbackCommand struct {
	Code  string
	State string
}

type HandleConnectCallbackResult struct {
	UserID string
}

// HandleConnectCallbackUseCase completes the OAuth flow: it stores the
// credential, creates default sync settings, registers the webhook channel
// and queues the first full sync.
type HandleConnectCallbackUseCase struct {
	oauth           calendarsync.OAuthProvider
	stateStore      StateStore
	credentialRepo  calendarsync.CredentialRepository
	settingsRepo    calendarsync.SettingsRepository
	queue           *QueueService
	channelRegistry *RegisterChannelUseCase
	audit           *AuditRecorder
	logger          logger.Interface
}

// NewHandleConnectCallbackUseCase creates a HandleConnectCallbackUseCase.
func NewHandleConnectCallbackUseCase(
	oauth calendarsync.OAuthProvider,
	stateStore StateStore,
	credentialRepo calendarsync.CredentialRepository,
	settingsRepo calendarsync.SettingsRepository,
	queue *QueueService,
	channelRegistry *RegisterChannelUseCase,
	audit *AuditRecorder,
	logger logger.Interface,
) *HandleConnectCallbackUseCase {
	return &HandleConnectCallbackUseCase{
		oauth:           oauth,
		stateStore:      stateStore,
		credentialRepo:  credentialRepo,
		settingsRepo:    settingsRepo,
		queue:           queue,
		channelRegistry: channelRegistry,
		audit:           audit,
		logger:          logger,
	}
}

func (uc *HandleConnectCallbackUseCase) Execute(ctx context.Context, cmd HandleConnectCallbackCommand) (*HandleConnectCallbackResult, error) {
	userID, err := uc.stateStore.VerifyAndGet(ctx, cmd.State)
	if err != nil {
		uc.logger.Warnw("invalid or expired OAuth state", "error", err)
		return nil, apperrors.NewBadRequestError("invalid or expired state parameter")
	}

	tokens, err := uc.oauth.Exchange(ctx, cmd.Code)
	if err != nil {
		uc.logger.Errorw("failed to exchange authorization code", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if tokens.RefreshToken == "" {
		return nil, apperrors.NewBadRequestError("provider returned no refresh token, revoke access and try again")
	}

	credential := calendarsync.NewOAuthCredential(userID, tokens.AccessToken, tokens.RefreshToken, tokens.Scope, tokens.ExpiresAt)
	if err := uc.credentialRepo.Save(ctx, credential); err != nil {
		uc.logger.Errorw("failed to save credential", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}
	uc.audit.Record(ctx, userID, calendarsync.AuditActionCredentialSaved, true, map[string]interface{}{
		"scope": tokens.Scope,
	})

	if _, err := uc.settingsRepo.GetByUserID(ctx, userID); err != nil {
		if !apperrors.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to load sync settings: %w", err)
		}
		settings := calendarsync.NewSyncSettings(userID, DefaultCalendarID)
		if err := uc.settingsRepo.Save(ctx, settings); err != nil {
			uc.logger.Errorw("failed to create sync settings", "error", err, "user_id", userID)
			return nil, fmt.Errorf("failed to create sync settings: %w", err)
		}
	}

	// Channel registration failures are recoverable: the renewal sweep
	// retries and polling still works without a channel.
	if err := uc.channelRegistry.Execute(ctx, RegisterChannelCommand{UserID: userID}); err != nil {
		uc.logger.Warnw("failed to register webhook channel", "error", err, "user_id", userID)
	}

	if err := uc.queue.EnqueueInbound(ctx, userID, calendarsync.PriorityHigh); err != nil {
		uc.logger.Warnw("failed to queue initial sync", "error", err, "user_id", userID)
	}

	uc.logger.Infow("calendar connected", "user_id", userID)
	return &HandleConnectCallbackResult{UserID: userID}, nil
}
