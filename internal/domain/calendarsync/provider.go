package calendarsync

import (
	"context"
	"time"
)

// ExternalEvent is the provider-neutral view of one external calendar
// event. AppEventID and AppCategory carry the private metadata that tags
// events managed by this application.
type ExternalEvent struct {
	ID          string
	ETag        string
	Cancelled   bool
	Summary     string
	Description string
	ColorID     string
	AllDay      bool
	StartAt     time.Time
	EndAt       time.Time
	UpdatedAt   time.Time
	AppEventID  string
	AppCategory string
}

// ChannelInfo describes a registered webhook channel on the provider side.
type ChannelInfo struct {
	ID         string
	ResourceID string
	ExpiresAt  time.Time
}

// TokenSet is the result of an OAuth code exchange or token refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}

// OAuthProvider performs the OAuth flow against the external provider.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*TokenSet, error)
	// Refresh trades a refresh token for a fresh access token. A revoked
	// grant surfaces as ErrReauthorizationRequired.
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)
	// Revoke invalidates a token on the provider side. A token the
	// provider no longer knows reports success.
	Revoke(ctx context.Context, token string) error
}

// CalendarProvider is the port to the external calendar API. Implementations
// translate provider errors into the engine's sentinel and typed errors:
// a stale incremental cursor is ErrStaleSyncToken, a revoked credential is
// ErrReauthorizationRequired, and retryable provider outages are
// unavailable errors.
type CalendarProvider interface {
	// ListWindow pages through all events in [from, to) and returns them
	// with the sync token that makes later listings incremental.
	ListWindow(ctx context.Context, accessToken, calendarID string, from, to time.Time) ([]*ExternalEvent, string, error)
	// ListIncremental pages through all changes since syncToken and returns
	// them with the next cursor. Cancelled events are included.
	ListIncremental(ctx context.Context, accessToken, calendarID, syncToken string) ([]*ExternalEvent, string, error)
	InsertEvent(ctx context.Context, accessToken, calendarID string, event *ExternalEvent) (*ExternalEvent, error)
	// PatchEvent updates an existing event. The event's ETag, when present,
	// is sent as a precondition.
	PatchEvent(ctx context.Context, accessToken, calendarID string, event *ExternalEvent) (*ExternalEvent, error)
	// DeleteEvent removes an event. Deleting an already-deleted event is
	// not an error.
	DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error
	// WatchEvents registers a webhook channel for the calendar.
	WatchEvents(ctx context.Context, accessToken, calendarID, channelID, secret, address string, ttl time.Duration) (*ChannelInfo, error)
	StopChannel(ctx context.Context, accessToken, channelID, resourceID string) error
}
