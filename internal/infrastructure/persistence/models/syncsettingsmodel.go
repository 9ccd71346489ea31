package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncSettingsModel represents the database persistence model for per-user
// calendar sync settings, including the webhook channel state.
type SyncSettingsModel struct {
	ID         uint   `gorm:"primarykey"`
	UserID     string `gorm:"not null;size:36;uniqueIndex:idx_sync_settings_user"`
	Enabled    bool   `gorm:"not null;default:true"`
	Direction  string `gorm:"not null;size:20"`
	CalendarID string `gorm:"not null;size:255"`
	SyncToken  string `gorm:"size:500"`

	ChannelID         string     `gorm:"size:64;index:idx_sync_settings_channel"`
	ChannelResourceID string     `gorm:"size:255;index:idx_sync_settings_channel"`
	ChannelSecret     string     `gorm:"size:64"`
	ChannelExpiresAt  *time.Time `gorm:"index:idx_sync_settings_channel_expiry"`

	LastFullSyncAt        *time.Time
	LastIncrementalSyncAt *time.Time

	SyncAmounts       bool           `gorm:"not null;default:true"`
	AllowedCategories datatypes.JSON `gorm:"column:allowed_categories"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (SyncSettingsModel) TableName() string {
	return "calendar_sync_settings"
}
