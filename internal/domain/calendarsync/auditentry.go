package calendarsync

import (
	"time"

	"aegiswallet/internal/shared/biztime"
)

// Audit actions recorded by the engine.
const (
	AuditActionCredentialSaved   = "credential_saved"
	AuditActionCredentialInvalid = "credential_invalidated"
	AuditActionDisconnected      = "calendar_disconnected"
	AuditActionFullSync          = "full_sync"
	AuditActionIncrementalSync   = "incremental_sync"
	AuditActionEventPushed       = "event_pushed"
	AuditActionEventDeleted      = "event_deleted"
	AuditActionChannelRegistered = "channel_registered"
	AuditActionChannelRenewed    = "channel_renewed"
	AuditActionChannelStopped    = "channel_stopped"
	AuditActionWebhookRejected   = "webhook_rejected"
	AuditActionJobFailed         = "sync_job_failed"
)

// AuditEntry is an append-only record of one engine state transition. It is
// never mutated or deleted by the engine.
type AuditEntry struct {
	ID        uint
	UserID    string
	Action    string
	Success   bool
	Details   map[string]interface{}
	CreatedAt time.Time
}

// NewAuditEntry creates an audit entry stamped with the current time.
func NewAuditEntry(userID, action string, success bool, details map[string]interface{}) *AuditEntry {
	return &AuditEntry{
		UserID:    userID,
		Action:    action,
		Success:   success,
		Details:   details,
		CreatedAt: biztime.NowUTC(),
	}
}
