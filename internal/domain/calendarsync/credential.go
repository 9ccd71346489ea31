package calendarsync

import (
	"time"

	"aegiswallet/internal/shared/biztime"
)

// RefreshBuffer is how close to expiry an access token may get before it is
// refreshed ahead of use.
const RefreshBuffer = 5 * time.Minute

// OAuthCredential holds the Google OAuth tokens for one user. There is at
// most one credential record per user; an invalid credential must never be
// used for a provider call.
type OAuthCredential struct {
	ID            uint
	UserID        string
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
	Scope         string
	Valid         bool
	LastRefreshAt *time.Time
	LastUsedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOAuthCredential creates a credential from a completed OAuth exchange.
func NewOAuthCredential(userID, accessToken, refreshToken, scope string, expiresAt time.Time) *OAuthCredential {
	now := biztime.NowUTC()
	return &OAuthCredential{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		Scope:        scope,
		Valid:        true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NeedsRefresh reports whether the access token expires within the refresh
// buffer of now and must be refreshed before use.
func (c *OAuthCredential) NeedsRefresh(now time.Time) bool {
	return now.Add(RefreshBuffer).After(c.ExpiresAt)
}

// ApplyRefresh records a successful token refresh.
func (c *OAuthCredential) ApplyRefresh(accessToken string, expiresAt, now time.Time) {
	c.AccessToken = accessToken
	c.ExpiresAt = expiresAt
	c.Valid = true
	c.LastRefreshAt = &now
	c.LastUsedAt = &now
	c.UpdatedAt = now
}

// MarkUsed updates the last-used timestamp.
func (c *OAuthCredential) MarkUsed(now time.Time) {
	c.LastUsedAt = &now
	c.UpdatedAt = now
}

// Invalidate marks the credential unusable. The user must re-authorize.
func (c *OAuthCredential) Invalidate(now time.Time) {
	c.Valid = false
	c.UpdatedAt = now
}
