package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditEntryModel represents the database persistence model for the
// append-only sync audit log. Rows are never updated or deleted by the
// engine.
type AuditEntryModel struct {
	ID        uint           `gorm:"primarykey"`
	UserID    string         `gorm:"not null;size:36;index:idx_audit_user"`
	Action    string         `gorm:"not null;size:50;index:idx_audit_action"`
	Success   bool           `gorm:"not null"`
	Details   datatypes.JSON `gorm:"column:details"`
	CreatedAt time.Time      `gorm:"index:idx_audit_created"`
}

// TableName specifies the table name for GORM
func (AuditEntryModel) TableName() string {
	return "calendar_sync_audit"
}
