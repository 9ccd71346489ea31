package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/shared/biztime"
	apperrors "aegiswallet/internal/shared/errors"
	"aegiswallet/internal/shared/logger"
)

// ProcessQueueUseCase drains one batch of due sync jobs. Retryable
// failures reschedule with exponential backoff; terminal ones park the job
// as failed and leave an audit trace.
type ProcessQueueUseCase struct {
	queueRepo calendarsync.QueueRepository
	executor  *SyncExecutor
	audit     *AuditRecorder
	batchSize int
	logger    logger.Interface
	nowFn     func() time.Time
}

// NewProcessQueueUseCase creates a ProcessQueueUseCase.
func NewProcessQueueUseCase(
	queueRepo calendarsync.QueueRepository,
	executor *SyncExecutor,
	audit *AuditRecorder,
	batchSize int,
	logger logger.Interface,
) *ProcessQueueUseCase {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ProcessQueueUseCase{
		queueRepo: queueRepo,
		executor:  executor,
		audit:     audit,
		batchSize: batchSize,
		logger:    logger,
		nowFn:     biztime.NowUTC,
	}
}

// Execute claims and processes one batch, returning how many jobs it ran.
func (uc *ProcessQueueUseCase) Execute(ctx context.Context) (int, error) {
	items, err := uc.queueRepo.ClaimDue(ctx, uc.batchSize, uc.nowFn())
	if err != nil {
		return 0, fmt.Errorf("failed to claim due jobs: %w", err)
	}

	for _, item := range items {
		uc.process(ctx, item)
	}
	return len(items), nil
}

func (uc *ProcessQueueUseCase) process(ctx context.Context, item *calendarsync.SyncQueueItem) {
	var err error
	switch item.Direction() {
	case calendarsync.JobOutbound:
		err = uc.executor.PushEvent(ctx, item.UserID(), item.LocalEventID())
	case calendarsync.JobInbound:
		err = uc.executor.RunSync(ctx, item.UserID())
	default:
		err = fmt.Errorf("unknown job direction %q", item.Direction())
	}

	now := uc.nowFn()
	if err == nil {
		if completeErr := item.Complete(now); completeErr != nil {
			uc.logger.Errorw("failed to complete job", "error", completeErr, "job_id", item.ID())
			return
		}
		if updateErr := uc.queueRepo.Update(ctx, item); updateErr != nil {
			uc.logger.Errorw("failed to persist completed job", "error", updateErr, "job_id", item.ID())
		}
		return
	}

	terminal := isTerminal(err)
	if failErr := item.Fail(err.Error(), terminal, now); failErr != nil {
		uc.logger.Errorw("failed to fail job", "error", failErr, "job_id", item.ID())
		return
	}
	if updateErr := uc.queueRepo.Update(ctx, item); updateErr != nil {
		uc.logger.Errorw("failed to persist failed job", "error", updateErr, "job_id", item.ID())
		return
	}

	if item.Status() == calendarsync.QueueStatusFailed {
		uc.audit.Record(ctx, item.UserID(), calendarsync.AuditActionJobFailed, false, map[string]interface{}{
			"job_id":    item.ID(),
			"direction": string(item.Direction()),
			"error":     err.Error(),
			"attempts":  item.RetryCount() + 1,
		})
		uc.logger.Errorw("sync job failed permanently", "error", err,
			"job_id", item.ID(), "user_id", item.UserID(), "direction", item.Direction())
		return
	}
	uc.logger.Warnw("sync job failed, will retry", "error", err,
		"job_id", item.ID(), "user_id", item.UserID(), "next_run_at", item.NextRunAt())
}

// isTerminal reports whether retrying cannot fix an error. Dead
// credentials, disabled sync and semantic rejections are final; provider
// outages and everything else get the backoff ladder.
func isTerminal(err error) bool {
	switch {
	case errors.Is(err, calendarsync.ErrReauthorizationRequired),
		errors.Is(err, calendarsync.ErrNoCredential),
		errors.Is(err, calendarsync.ErrSyncDisabled):
		return true
	}
	return apperrors.IsValidationError(err) ||
		apperrors.IsConflictError(err) ||
		apperrors.IsNotFoundError(err)
}
