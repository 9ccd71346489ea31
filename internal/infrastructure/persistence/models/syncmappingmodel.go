package models

import "time"

// SyncMappingModel represents the database persistence model for the
// local/external event correspondence. Unique on (user, local event) and
// on (user, external event); the unique constraints back the upsert
// semantics of concurrent workers.
type SyncMappingModel struct {
	ID                 uint   `gorm:"primarykey"`
	UserID             string `gorm:"not null;size:36;uniqueIndex:idx_mapping_user_local;uniqueIndex:idx_mapping_user_external"`
	LocalEventID       string `gorm:"not null;size:36;uniqueIndex:idx_mapping_user_local"`
	ExternalEventID    string `gorm:"not null;size:255;uniqueIndex:idx_mapping_user_external"`
	ExternalCalendarID string `gorm:"not null;size:255"`
	Status             string `gorm:"not null;size:20"`
	Provenance         string `gorm:"not null;size:20"`
	ETag               string `gorm:"size:255;column:etag"`
	Version            int    `gorm:"not null;default:0"`
	LastSyncedAt       *time.Time
	LastModifiedAt     *time.Time
	ErrorMessage       string `gorm:"type:text"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName specifies the table name for GORM
func (SyncMappingModel) TableName() string {
	return "calendar_sync_mappings"
}
