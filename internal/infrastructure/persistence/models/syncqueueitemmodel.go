package models

import "time"

// SyncQueueItemModel represents the database persistence model for the
// durable sync work queue.
type SyncQueueItemModel struct {
	ID           uint      `gorm:"primarykey"`
	UserID       string    `gorm:"not null;size:36;index:idx_queue_user"`
	LocalEventID string    `gorm:"size:36"`
	Direction    string    `gorm:"not null;size:20"`
	Status       string    `gorm:"not null;size:20;index:idx_queue_claim"`
	Priority     int       `gorm:"not null;default:0"`
	RetryCount   int       `gorm:"not null;default:0"`
	MaxRetries   int       `gorm:"not null;default:3"`
	NextRunAt    time.Time `gorm:"not null;index:idx_queue_claim"`
	LastError    string    `gorm:"type:text"`
	CreatedAt    time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for GORM
func (SyncQueueItemModel) TableName() string {
	return "calendar_sync_queue"
}
