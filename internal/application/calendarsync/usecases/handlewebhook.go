package usecases

import (
	"context"
	"crypto/subtle"

	"aegiswallet/internal/domain/calendarsync"
	apperrors "aegiswallet/internal/shared/errors"
	"aegiswallet/internal/shared/logger"
)

// Resource state sent on a channel's very first notification. Carries no
// change, only confirms delivery works.
const resourceStateSync = "sync"

type HandleWebhookCommand struct {
	ChannelID     string
	ResourceID    string
	ResourceState string
	Token         string
}

// HandleWebhookUseCase validates provider change notifications and turns
// them into inbound sync jobs. Unknown or forged notifications are dropped
// and audited; nothing is ever returned to the caller that distinguishes
// the two, the HTTP layer answers 200 regardless.
type HandleWebhookUseCase struct {
	settingsRepo calendarsync.SettingsRepository
	queue        *QueueService
	audit        *AuditRecorder
	logger       logger.Interface
}

// NewHandleWebhookUseCase creates a HandleWebhookUseCase.
func NewHandleWebhookUseCase(
	settingsRepo calendarsync.SettingsRepository,
	queue *QueueService,
	audit *AuditRecorder,
	logger logger.Interface,
) *HandleWebhookUseCase {
	return &HandleWebhookUseCase{
		settingsRepo: settingsRepo,
		queue:        queue,
		audit:        audit,
		logger:       logger,
	}
}

func (uc *HandleWebhookUseCase) Execute(ctx context.Context, cmd HandleWebhookCommand) error {
	if cmd.ChannelID == "" || cmd.ResourceID == "" {
		uc.logger.Debugw("webhook without channel headers dropped")
		return nil
	}

	settings, err := uc.settingsRepo.GetByChannel(ctx, cmd.ChannelID, cmd.ResourceID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			uc.logger.Warnw("webhook for unknown channel dropped", "channel_id", cmd.ChannelID)
			uc.audit.Record(ctx, "", calendarsync.AuditActionWebhookRejected, false, map[string]interface{}{
				"channel_id": cmd.ChannelID,
				"reason":     "unknown channel",
			})
			return nil
		}
		return err
	}

	if subtle.ConstantTimeCompare([]byte(cmd.Token), []byte(settings.ChannelSecret)) != 1 {
		uc.logger.Warnw("webhook with bad token dropped", "channel_id", cmd.ChannelID, "user_id", settings.UserID)
		uc.audit.Record(ctx, settings.UserID, calendarsync.AuditActionWebhookRejected, false, map[string]interface{}{
			"channel_id": cmd.ChannelID,
			"reason":     "token mismatch",
		})
		return nil
	}

	if cmd.ResourceState == resourceStateSync {
		uc.logger.Debugw("webhook channel confirmed", "channel_id", cmd.ChannelID, "user_id", settings.UserID)
		return nil
	}

	if !settings.Enabled || !settings.Direction.AllowsInbound() {
		return nil
	}

	if err := uc.queue.EnqueueInbound(ctx, settings.UserID, calendarsync.PriorityHigh); err != nil {
		return err
	}
	uc.logger.Debugw("webhook accepted", "channel_id", cmd.ChannelID, "user_id", settings.UserID)
	return nil
}
