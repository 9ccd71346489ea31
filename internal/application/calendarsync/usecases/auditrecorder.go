package usecases

import (
	"context"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/shared/logger"
)

// AuditRecorder appends engine state transitions to the audit trail. A
// failed append is logged and swallowed so auditing never fails the
// operation it describes.
type AuditRecorder struct {
	auditRepo calendarsync.AuditRepository
	logger    logger.Interface
}

// NewAuditRecorder creates an AuditRecorder.
func NewAuditRecorder(auditRepo calendarsync.AuditRepository, logger logger.Interface) *AuditRecorder {
	return &AuditRecorder{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record appends one audit entry.
func (r *AuditRecorder) Record(ctx context.Context, userID, action string, success bool, details map[string]interface{}) {
	entry := calendarsync.NewAuditEntry(userID, action, success, details)
	if err := r.auditRepo.Create(ctx, entry); err != nil {
		r.logger.Warnw("failed to record audit entry", "error", err, "user_id", userID, "action", action)
	}
}
