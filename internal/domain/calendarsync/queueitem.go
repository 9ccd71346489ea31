package calendarsync

import (
	"fmt"
	"time"

	"aegiswallet/internal/shared/biztime"
)

// QueueStatus is the lifecycle state of a queue item. Transitions are
// monotonic except processing -> pending on a retryable failure.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// JobDirection tells the worker which way a queue item syncs.
type JobDirection string

const (
	JobOutbound JobDirection = "outbound"
	JobInbound  JobDirection = "inbound"
)

// Queue priorities. Higher runs first.
const (
	PriorityNormal = 0
	PriorityHigh   = 10
)

// DefaultMaxRetries is the default attempt budget for a queue item.
const DefaultMaxRetries = 3

// backoffBase is the unit of the exponential retry delay.
const backoffBase = time.Minute

// SyncQueueItem is one durable unit of sync work. Outbound jobs carry the
// local event id they push; inbound jobs carry none and trigger an
// incremental pull.
type SyncQueueItem struct {
	id           uint
	userID       string
	localEventID string
	direction    JobDirection
	status       QueueStatus
	priority     int
	retryCount   int
	maxRetries   int
	nextRunAt    time.Time
	lastError    string
	createdAt    time.Time
	completedAt  *time.Time
	updatedAt    time.Time
}

// NewOutboundItem creates a job pushing one local event to the external
// calendar.
func NewOutboundItem(userID, localEventID string, priority, maxRetries int) (*SyncQueueItem, error) {
	if localEventID == "" {
		return nil, fmt.Errorf("outbound queue item requires a local event id")
	}
	item := newItem(userID, JobOutbound, priority, maxRetries)
	item.localEventID = localEventID
	return item, nil
}

// NewInboundItem creates a job pulling external changes for a user.
func NewInboundItem(userID string, priority, maxRetries int) *SyncQueueItem {
	return newItem(userID, JobInbound, priority, maxRetries)
}

func newItem(userID string, direction JobDirection, priority, maxRetries int) *SyncQueueItem {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	now := biztime.NowUTC()
	return &SyncQueueItem{
		userID:     userID,
		direction:  direction,
		status:     QueueStatusPending,
		priority:   priority,
		maxRetries: maxRetries,
		nextRunAt:  now,
		createdAt:  now,
		updatedAt:  now,
	}
}

// Start marks the item as claimed by a worker.
func (i *SyncQueueItem) Start(now time.Time) error {
	if i.status != QueueStatusPending {
		return fmt.Errorf("cannot start queue item with status %s", i.status)
	}
	i.status = QueueStatusProcessing
	i.updatedAt = now
	return nil
}

// Complete marks the item as successfully processed.
func (i *SyncQueueItem) Complete(now time.Time) error {
	if i.status != QueueStatusProcessing {
		return fmt.Errorf("cannot complete queue item with status %s", i.status)
	}
	i.status = QueueStatusCompleted
	i.completedAt = &now
	i.updatedAt = now
	return nil
}

// Fail records a failed attempt. Retryable failures return the item to
// pending with the next run scheduled 2^retryCount minutes out; exhausted
// or terminal failures park it as failed permanently.
func (i *SyncQueueItem) Fail(cause string, terminal bool, now time.Time) error {
	if i.status != QueueStatusProcessing {
		return fmt.Errorf("cannot fail queue item with status %s", i.status)
	}
	i.lastError = cause
	i.updatedAt = now

	if terminal || i.retryCount >= i.maxRetries-1 {
		i.status = QueueStatusFailed
		i.completedAt = &now
		return nil
	}

	i.retryCount++
	i.status = QueueStatusPending
	i.nextRunAt = now.Add(backoffBase * time.Duration(1<<(i.retryCount-1)))
	return nil
}

// Due reports whether the item is eligible to run at now.
func (i *SyncQueueItem) Due(now time.Time) bool {
	return i.status == QueueStatusPending && !i.nextRunAt.After(now)
}

func (i *SyncQueueItem) ID() uint                { return i.id }
func (i *SyncQueueItem) UserID() string          { return i.userID }
func (i *SyncQueueItem) LocalEventID() string    { return i.localEventID }
func (i *SyncQueueItem) Direction() JobDirection { return i.direction }
func (i *SyncQueueItem) Status() QueueStatus     { return i.status }
func (i *SyncQueueItem) Priority() int           { return i.priority }
func (i *SyncQueueItem) RetryCount() int         { return i.retryCount }
func (i *SyncQueueItem) MaxRetries() int         { return i.maxRetries }
func (i *SyncQueueItem) NextRunAt() time.Time    { return i.nextRunAt }
func (i *SyncQueueItem) LastError() string       { return i.lastError }
func (i *SyncQueueItem) CreatedAt() time.Time    { return i.createdAt }
func (i *SyncQueueItem) CompletedAt() *time.Time { return i.completedAt }
func (i *SyncQueueItem) UpdatedAt() time.Time    { return i.updatedAt }

// SetID sets the item ID after persistence (used by repository after Create)
func (i *SyncQueueItem) SetID(id uint) {
	i.id = id
}

// SyncQueueItemReconstructParams carries persisted state back into a
// domain entity.
type SyncQueueItemReconstructParams struct {
	ID           uint
	UserID       string
	LocalEventID string
	Direction    JobDirection
	Status       QueueStatus
	Priority     int
	RetryCount   int
	MaxRetries   int
	NextRunAt    time.Time
	LastError    string
	CreatedAt    time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// ReconstructSyncQueueItem rebuilds a queue item from persistence.
func ReconstructSyncQueueItem(p SyncQueueItemReconstructParams) *SyncQueueItem {
	return &SyncQueueItem{
		id:           p.ID,
		userID:       p.UserID,
		localEventID: p.LocalEventID,
		direction:    p.Direction,
		status:       p.Status,
		priority:     p.Priority,
		retryCount:   p.RetryCount,
		maxRetries:   p.MaxRetries,
		nextRunAt:    p.NextRunAt,
		lastError:    p.LastError,
		createdAt:    p.CreatedAt,
		completedAt:  p.CompletedAt,
		updatedAt:    p.UpdatedAt,
	}
}
