package models

import "time"

// CredentialModel represents the database persistence model for Google
// OAuth credentials. One row per user.
type CredentialModel struct {
	ID            uint       `gorm:"primarykey"`
	UserID        string     `gorm:"not null;size:36;uniqueIndex:idx_credential_user"`
	AccessToken   string     `gorm:"not null;type:text"`
	RefreshToken  string     `gorm:"type:text"`
	ExpiresAt     time.Time  `gorm:"not null"`
	Scope         string     `gorm:"size:500"`
	Valid         bool       `gorm:"not null;default:true"`
	LastRefreshAt *time.Time
	LastUsedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for GORM
func (CredentialModel) TableName() string {
	return "calendar_credentials"
}
