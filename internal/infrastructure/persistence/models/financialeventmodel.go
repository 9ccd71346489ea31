package models

import "time"

// FinancialEventModel represents the database persistence model for local
// financial events, the collaborator store consumed by the sync executor.
type FinancialEventModel struct {
	ID          string    `gorm:"primarykey;size:36"`
	UserID      string    `gorm:"not null;size:36;index:idx_financial_event_user"`
	Title       string    `gorm:"not null;size:255"`
	Description string    `gorm:"type:text"`
	AmountCents int64     `gorm:"not null;default:0"`
	Income      bool      `gorm:"not null;default:false"`
	Category    string    `gorm:"not null;size:50"`
	AllDay      bool      `gorm:"not null;default:false"`
	StartAt     time.Time `gorm:"not null"`
	EndAt       time.Time `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for GORM
func (FinancialEventModel) TableName() string {
	return "financial_events"
}
