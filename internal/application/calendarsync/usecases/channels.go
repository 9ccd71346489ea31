package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/shared/biztime"
	apperrors "aegiswallet/internal/shared/errors"
	"aegiswallet/internal/shared/logger"
)

// ChannelConfig carries the webhook channel tunables.
type ChannelConfig struct {
	// Address is the public webhook endpoint notifications are delivered to.
	Address string
	// TTL is the lifetime requested for new channels.
	TTL time.Duration
	// RenewalLead is how long before expiry a channel gets renewed.
	RenewalLead time.Duration
}

type RegisterChannelCommand struct {
	UserID string
}

// RegisterChannelUseCase registers a webhook channel for a user's calendar,
// replacing any previously registered one.
type RegisterChannelUseCase struct {
	settingsRepo calendarsync.SettingsRepository
	provider     calendarsync.CalendarProvider
	tokens       *TokenService
	audit        *AuditRecorder
	cfg          ChannelConfig
	logger       logger.Interface
	nowFn        func() time.Time
}

// NewRegisterChannelUseCase creates a RegisterChannelUseCase.
func NewRegisterChannelUseCase(
	settingsRepo calendarsync.SettingsRepository,
	provider calendarsync.CalendarProvider,
	tokens *TokenService,
	audit *AuditRecorder,
	cfg ChannelConfig,
	logger logger.Interface,
) *RegisterChannelUseCase {
	return &RegisterChannelUseCase{
		settingsRepo: settingsRepo,
		provider:     provider,
		tokens:       tokens,
		audit:        audit,
		cfg:          cfg,
		logger:       logger,
		nowFn:        biztime.NowUTC,
	}
}

func (uc *RegisterChannelUseCase) Execute(ctx context.Context, cmd RegisterChannelCommand) error {
	settings, err := uc.settingsRepo.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		return fmt.Errorf("failed to load sync settings: %w", err)
	}
	if !settings.Enabled {
		return calendarsync.ErrSyncDisabled
	}

	accessToken, err := uc.tokens.AccessToken(ctx, cmd.UserID)
	if err != nil {
		return err
	}

	now := uc.nowFn()
	if settings.HasChannel() {
		if err := uc.provider.StopChannel(ctx, accessToken, settings.ChannelID, settings.ChannelResourceID); err != nil {
			uc.logger.Warnw("failed to stop previous channel", "error", err, "user_id", cmd.UserID)
		}
		settings.ClearChannel(now)
	}

	secret, err := generateState()
	if err != nil {
		return fmt.Errorf("failed to generate channel secret: %w", err)
	}

	info, err := uc.provider.WatchEvents(ctx, accessToken, settings.CalendarID, uuid.NewString(), secret, uc.cfg.Address, uc.cfg.TTL)
	if err != nil {
		uc.audit.Record(ctx, cmd.UserID, calendarsync.AuditActionChannelRegistered, false, map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to register webhook channel: %w", err)
	}

	settings.SetChannel(info.ID, info.ResourceID, secret, info.ExpiresAt, now)
	if err := uc.settingsRepo.Update(ctx, settings); err != nil {
		return fmt.Errorf("failed to persist channel registration: %w", err)
	}

	uc.audit.Record(ctx, cmd.UserID, calendarsync.AuditActionChannelRegistered, true, map[string]interface{}{
		"channel_id": info.ID,
		"expires_at": info.ExpiresAt,
	})
	uc.logger.Infow("webhook channel registered", "user_id", cmd.UserID, "channel_id", info.ID, "expires_at", info.ExpiresAt)
	return nil
}

// StopChannel stops and forgets the user's webhook channel. A channel the
// provider no longer knows is treated as stopped.
func (uc *RegisterChannelUseCase) StopChannel(ctx context.Context, userID string) error {
	settings, err := uc.settingsRepo.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to load sync settings: %w", err)
	}
	if !settings.HasChannel() {
		return nil
	}

	accessToken, err := uc.tokens.AccessToken(ctx, userID)
	if err == nil {
		if stopErr := uc.provider.StopChannel(ctx, accessToken, settings.ChannelID, settings.ChannelResourceID); stopErr != nil {
			uc.logger.Warnw("failed to stop webhook channel", "error", stopErr, "user_id", userID)
		}
	}

	settings.ClearChannel(uc.nowFn())
	if err := uc.settingsRepo.Update(ctx, settings); err != nil {
		return fmt.Errorf("failed to persist channel removal: %w", err)
	}
	uc.audit.Record(ctx, userID, calendarsync.AuditActionChannelStopped, true, nil)
	return nil
}

// RenewChannelsUseCase re-registers webhook channels that are close to
// expiry. Run periodically by the scheduler.
type RenewChannelsUseCase struct {
	settingsRepo calendarsync.SettingsRepository
	registry     *RegisterChannelUseCase
	audit        *AuditRecorder
	lead         time.Duration
	logger       logger.Interface
	nowFn        func() time.Time
}

// NewRenewChannelsUseCase creates a RenewChannelsUseCase.
func NewRenewChannelsUseCase(
	settingsRepo calendarsync.SettingsRepository,
	registry *RegisterChannelUseCase,
	audit *AuditRecorder,
	lead time.Duration,
	logger logger.Interface,
) *RenewChannelsUseCase {
	return &RenewChannelsUseCase{
		settingsRepo: settingsRepo,
		registry:     registry,
		audit:        audit,
		lead:         lead,
		logger:       logger,
		nowFn:        biztime.NowUTC,
	}
}

// Execute renews every channel expiring within the lead window and returns
// how many were renewed. One user's failure does not stop the sweep.
func (uc *RenewChannelsUseCase) Execute(ctx context.Context) (int, error) {
	expiring, err := uc.settingsRepo.ListExpiringChannels(ctx, uc.nowFn().Add(uc.lead))
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring channels: %w", err)
	}

	renewed := 0
	for _, settings := range expiring {
		if err := uc.registry.Execute(ctx, RegisterChannelCommand{UserID: settings.UserID}); err != nil {
			uc.logger.Errorw("failed to renew webhook channel", "error", err, "user_id", settings.UserID)
			continue
		}
		uc.audit.Record(ctx, settings.UserID, calendarsync.AuditActionChannelRenewed, true, nil)
		renewed++
	}
	return renewed, nil
}
