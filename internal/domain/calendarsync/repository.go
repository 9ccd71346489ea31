package calendarsync

import (
	"context"
	"time"
)

// CredentialRepository persists OAuth credentials, one per user.
type CredentialRepository interface {
	// Save upserts the credential for its user.
	Save(ctx context.Context, credential *OAuthCredential) error
	GetByUserID(ctx context.Context, userID string) (*OAuthCredential, error)
	Update(ctx context.Context, credential *OAuthCredential) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// SettingsRepository persists per-user sync settings.
type SettingsRepository interface {
	Save(ctx context.Context, settings *SyncSettings) error
	Update(ctx context.Context, settings *SyncSettings) error
	GetByUserID(ctx context.Context, userID string) (*SyncSettings, error)
	// GetByChannel resolves a webhook delivery to its settings record by
	// (channel id, resource id).
	GetByChannel(ctx context.Context, channelID, resourceID string) (*SyncSettings, error)
	// ListExpiringChannels returns enabled settings whose webhook channel
	// expires before the given instant.
	ListExpiringChannels(ctx context.Context, before time.Time) ([]*SyncSettings, error)
	// ListWithoutActiveChannel returns enabled settings with no webhook
	// channel, or one already expired at the given instant. These users
	// depend on polling to receive external changes.
	ListWithoutActiveChannel(ctx context.Context, now time.Time) ([]*SyncSettings, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// MappingRepository persists local/external event correspondences.
type MappingRepository interface {
	Create(ctx context.Context, mapping *SyncMapping) error
	Update(ctx context.Context, mapping *SyncMapping) error
	GetByLocalEventID(ctx context.Context, userID, localEventID string) (*SyncMapping, error)
	GetByExternalEventID(ctx context.Context, userID, externalEventID string) (*SyncMapping, error)
	ListByUser(ctx context.Context, userID string) ([]*SyncMapping, error)
	Delete(ctx context.Context, id uint) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// QueueRepository persists the durable sync work queue.
type QueueRepository interface {
	Create(ctx context.Context, item *SyncQueueItem) error
	Update(ctx context.Context, item *SyncQueueItem) error
	// ClaimDue atomically selects up to limit due pending items, ordered by
	// priority descending then creation time ascending, and marks them
	// processing before returning them.
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]*SyncQueueItem, error)
	CountPendingByUser(ctx context.Context, userID string) (int64, error)
	// DeleteOpenByUserID removes pending and processing items for a user,
	// used when the user disconnects.
	DeleteOpenByUserID(ctx context.Context, userID string) error
}

// AuditRepository persists append-only audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *AuditEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*AuditEntry, error)
}
