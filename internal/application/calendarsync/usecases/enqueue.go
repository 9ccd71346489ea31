package usecases

import (
	"context"
	"fmt"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/shared/logger"
)

// QueueService enqueues durable sync jobs.
type QueueService struct {
	queueRepo  calendarsync.QueueRepository
	maxRetries int
	logger     logger.Interface
}

// NewQueueService creates a QueueService. maxRetries bounds the attempt
// budget of every enqueued job.
func NewQueueService(queueRepo calendarsync.QueueRepository, maxRetries int, logger logger.Interface) *QueueService {
	if maxRetries <= 0 {
		maxRetries = calendarsync.DefaultMaxRetries
	}
	return &QueueService{
		queueRepo:  queueRepo,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// EnqueueOutbound queues a push of one local event to the external calendar.
// It is the hook for the financial-event CRUD flows, which live outside this
// engine and call it whenever a user creates, edits, or deletes an event.
func (s *QueueService) EnqueueOutbound(ctx context.Context, userID, localEventID string, priority int) error {
	item, err := calendarsync.NewOutboundItem(userID, localEventID, priority, s.maxRetries)
	if err != nil {
		return fmt.Errorf("failed to build outbound job: %w", err)
	}
	if err := s.queueRepo.Create(ctx, item); err != nil {
		return fmt.Errorf("failed to enqueue outbound job: %w", err)
	}
	s.logger.Debugw("outbound sync queued", "user_id", userID, "local_event_id", localEventID)
	return nil
}

// EnqueueInbound queues a pull of external changes for a user.
func (s *QueueService) EnqueueInbound(ctx context.Context, userID string, priority int) error {
	item := calendarsync.NewInboundItem(userID, priority, s.maxRetries)
	if err := s.queueRepo.Create(ctx, item); err != nil {
		return fmt.Errorf("failed to enqueue inbound job: %w", err)
	}
	s.logger.Debugw("inbound sync queued", "user_id", userID)
	return nil
}
