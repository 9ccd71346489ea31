// Package finance holds the financial-event collaborator boundary of the
// calendar sync engine. The engine reads and writes local events only
// through EventRepository, never through a lower layer.
package finance

import (
	"time"

	"github.com/google/uuid"

	"aegiswallet/internal/shared/biztime"
)

// DefaultCategory is assigned when an inbound event encodes no category.
const DefaultCategory = "outros"

// Event is one financial event of a user: a bill, a payday, a transfer
// reminder. Amounts are stored in centavos; Income tells the sign.
type Event struct {
	ID          string
	UserID      string
	Title       string
	Description string
	AmountCents int64
	Income      bool
	Category    string
	AllDay      bool
	StartAt     time.Time
	EndAt       time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEvent creates a financial event with a fresh id.
func NewEvent(userID, title string, startAt, endAt time.Time) *Event {
	now := biztime.NowUTC()
	return &Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Category:  DefaultCategory,
		StartAt:   startAt,
		EndAt:     endAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps the modification timestamp.
func (e *Event) Touch(now time.Time) {
	e.UpdatedAt = now
}
