package calendarsync

import (
	"time"

	"aegiswallet/internal/shared/biztime"
)

// SyncDirection controls which way events flow between the local store and
// the external calendar.
type SyncDirection string

const (
	DirectionToExternal    SyncDirection = "to_external"
	DirectionFromExternal  SyncDirection = "from_external"
	DirectionBidirectional SyncDirection = "bidirectional"
)

// IsValid reports whether the direction is one of the known values.
func (d SyncDirection) IsValid() bool {
	switch d {
	case DirectionToExternal, DirectionFromExternal, DirectionBidirectional:
		return true
	}
	return false
}

// AllowsOutbound reports whether local changes may be pushed externally.
func (d SyncDirection) AllowsOutbound() bool {
	return d == DirectionToExternal || d == DirectionBidirectional
}

// AllowsInbound reports whether external changes may be applied locally.
func (d SyncDirection) AllowsInbound() bool {
	return d == DirectionFromExternal || d == DirectionBidirectional
}

// SyncSettings is the per-user sync configuration, including incremental
// sync cursor and webhook channel state.
type SyncSettings struct {
	ID         uint
	UserID     string
	Enabled    bool
	Direction  SyncDirection
	CalendarID string

	// Incremental sync cursor. A non-empty token implies at least one
	// successful full sync has completed.
	SyncToken string

	ChannelID         string
	ChannelResourceID string
	ChannelSecret     string
	ChannelExpiresAt  *time.Time

	LastFullSyncAt        *time.Time
	LastIncrementalSyncAt *time.Time

	SyncAmounts       bool
	AllowedCategories []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSyncSettings creates default settings for a freshly connected user.
func NewSyncSettings(userID, calendarID string) *SyncSettings {
	now := biztime.NowUTC()
	return &SyncSettings{
		UserID:      userID,
		Enabled:     true,
		Direction:   DirectionBidirectional,
		CalendarID:  calendarID,
		SyncAmounts: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RecordFullSync stores the cursor produced by a completed full sync.
func (s *SyncSettings) RecordFullSync(syncToken string, now time.Time) {
	s.SyncToken = syncToken
	s.LastFullSyncAt = &now
	s.UpdatedAt = now
}

// RecordIncrementalSync stores the cursor produced by an incremental sync.
func (s *SyncSettings) RecordIncrementalSync(syncToken string, now time.Time) {
	s.SyncToken = syncToken
	s.LastIncrementalSyncAt = &now
	s.UpdatedAt = now
}

// ClearSyncToken drops the incremental cursor, forcing the next sync to be
// a full one.
func (s *SyncSettings) ClearSyncToken(now time.Time) {
	s.SyncToken = ""
	s.UpdatedAt = now
}

// SetChannel records a registered webhook channel.
func (s *SyncSettings) SetChannel(channelID, resourceID, secret string, expiresAt time.Time, now time.Time) {
	s.ChannelID = channelID
	s.ChannelResourceID = resourceID
	s.ChannelSecret = secret
	s.ChannelExpiresAt = &expiresAt
	s.UpdatedAt = now
}

// ClearChannel forgets the webhook channel after it is stopped.
func (s *SyncSettings) ClearChannel(now time.Time) {
	s.ChannelID = ""
	s.ChannelResourceID = ""
	s.ChannelSecret = ""
	s.ChannelExpiresAt = nil
	s.UpdatedAt = now
}

// HasChannel reports whether a webhook channel is currently registered.
func (s *SyncSettings) HasChannel() bool {
	return s.ChannelID != "" && s.ChannelExpiresAt != nil
}

// ChannelExpiresWithin reports whether the registered channel expires
// within d of now. Settings without a channel always report false.
func (s *SyncSettings) ChannelExpiresWithin(d time.Duration, now time.Time) bool {
	if !s.HasChannel() {
		return false
	}
	return s.ChannelExpiresAt.Before(now.Add(d))
}

// CategoryAllowed reports whether a category passes the allow-list. An
// empty allow-list admits every category.
func (s *SyncSettings) CategoryAllowed(category string) bool {
	if len(s.AllowedCategories) == 0 {
		return true
	}
	for _, c := range s.AllowedCategories {
		if c == category {
			return true
		}
	}
	return false
}
