package usecases

import (
	"context"
	"fmt"
	"time"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/shared/biztime"
	"aegiswallet/internal/shared/logger"
)

// PollFallbackUseCase queues inbound syncs for users whose webhook channel
// is missing or dead, so external changes still arrive without push
// notifications. Users with jobs already queued are skipped to keep the
// sweep from stacking work.
type PollFallbackUseCase struct {
	settingsRepo calendarsync.SettingsRepository
	queueRepo    calendarsync.QueueRepository
	queue        *QueueService
	logger       logger.Interface
	nowFn        func() time.Time
}

// NewPollFallbackUseCase creates a PollFallbackUseCase.
func NewPollFallbackUseCase(
	settingsRepo calendarsync.SettingsRepository,
	queueRepo calendarsync.QueueRepository,
	queue *QueueService,
	logger logger.Interface,
) *PollFallbackUseCase {
	return &PollFallbackUseCase{
		settingsRepo: settingsRepo,
		queueRepo:    queueRepo,
		queue:        queue,
		logger:       logger,
		nowFn:        biztime.NowUTC,
	}
}

// Execute queues one inbound sync per channel-less user and returns how many
// were queued.
func (uc *PollFallbackUseCase) Execute(ctx context.Context) (int, error) {
	users, err := uc.settingsRepo.ListWithoutActiveChannel(ctx, uc.nowFn())
	if err != nil {
		return 0, fmt.Errorf("failed to list users needing polling: %w", err)
	}

	queued := 0
	for _, settings := range users {
		if !settings.Direction.AllowsInbound() {
			continue
		}
		pending, err := uc.queueRepo.CountPendingByUser(ctx, settings.UserID)
		if err != nil {
			uc.logger.Errorw("failed to count pending jobs", "error", err, "user_id", settings.UserID)
			continue
		}
		if pending > 0 {
			continue
		}
		if err := uc.queue.EnqueueInbound(ctx, settings.UserID, calendarsync.PriorityNormal); err != nil {
			uc.logger.Errorw("failed to queue polling sync", "error", err, "user_id", settings.UserID)
			continue
		}
		queued++
	}
	return queued, nil
}
