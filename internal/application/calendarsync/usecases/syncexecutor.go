package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aegiswallet/internal/application/calendarsync/eventmapper"
	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/domain/finance"
	"aegiswallet/internal/shared/biztime"
	apperrors "aegiswallet/internal/shared/errors"
	"aegiswallet/internal/shared/logger"
)

// SyncWindowConfig bounds the event window of a full sync.
type SyncWindowConfig struct {
	Past   time.Duration
	Future time.Duration
}

// SyncExecutor runs full and incremental syncs and pushes single events.
// It is the only component that writes to both sides of a mapping.
type SyncExecutor struct {
	settingsRepo calendarsync.SettingsRepository
	mappingRepo  calendarsync.MappingRepository
	eventRepo    finance.EventRepository
	provider     calendarsync.CalendarProvider
	tokens       *TokenService
	guard        *calendarsync.LoopGuard
	audit        *AuditRecorder
	window       SyncWindowConfig
	logger       logger.Interface
	nowFn        func() time.Time
}

// NewSyncExecutor creates a SyncExecutor.
func NewSyncExecutor(
	settingsRepo calendarsync.SettingsRepository,
	mappingRepo calendarsync.MappingRepository,
	eventRepo finance.EventRepository,
	provider calendarsync.CalendarProvider,
	tokens *TokenService,
	guard *calendarsync.LoopGuard,
	audit *AuditRecorder,
	window SyncWindowConfig,
	logger logger.Interface,
) *SyncExecutor {
	return &SyncExecutor{
		settingsRepo: settingsRepo,
		mappingRepo:  mappingRepo,
		eventRepo:    eventRepo,
		provider:     provider,
		tokens:       tokens,
		guard:        guard,
		audit:        audit,
		window:       window,
		logger:       logger,
		nowFn:        biztime.NowUTC,
	}
}

// RunSync synchronizes one user. With no incremental cursor it runs a full
// sync, otherwise an incremental one; a stale cursor degrades to a full
// sync within the same call.
func (e *SyncExecutor) RunSync(ctx context.Context, userID string) error {
	settings, err := e.loadEnabledSettings(ctx, userID)
	if err != nil {
		return err
	}
	if settings.SyncToken == "" {
		return e.fullSync(ctx, settings)
	}
	return e.incrementalSync(ctx, settings)
}

func (e *SyncExecutor) loadEnabledSettings(ctx context.Context, userID string) (*calendarsync.SyncSettings, error) {
	settings, err := e.settingsRepo.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, calendarsync.ErrSyncDisabled
		}
		return nil, fmt.Errorf("failed to load sync settings: %w", err)
	}
	if !settings.Enabled {
		return nil, calendarsync.ErrSyncDisabled
	}
	return settings, nil
}

type syncCounters struct {
	pushed   int
	imported int
	updated  int
	deleted  int
	skipped  int
}

func (c syncCounters) details() map[string]interface{} {
	return map[string]interface{}{
		"pushed":   c.pushed,
		"imported": c.imported,
		"updated":  c.updated,
		"deleted":  c.deleted,
		"skipped":  c.skipped,
	}
}

func (e *SyncExecutor) fullSync(ctx context.Context, settings *calendarsync.SyncSettings) error {
	accessToken, err := e.tokens.AccessToken(ctx, settings.UserID)
	if err != nil {
		return err
	}

	now := e.nowFn()
	from := now.Add(-e.window.Past)
	to := now.Add(e.window.Future)

	externals, syncToken, err := e.provider.ListWindow(ctx, accessToken, settings.CalendarID, from, to)
	if err != nil {
		e.audit.Record(ctx, settings.UserID, calendarsync.AuditActionFullSync, false, map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	byID := make(map[string]*calendarsync.ExternalEvent, len(externals))
	byAppID := make(map[string]*calendarsync.ExternalEvent)
	for _, ext := range externals {
		byID[ext.ID] = ext
		if ext.AppEventID != "" {
			byAppID[ext.AppEventID] = ext
		}
	}

	var counters syncCounters

	locals, err := e.eventRepo.FindByUser(ctx, settings.UserID)
	if err != nil {
		return fmt.Errorf("failed to list local events: %w", err)
	}
	for _, local := range locals {
		if local.StartAt.Before(from) || !local.StartAt.Before(to) {
			continue
		}
		if !settings.CategoryAllowed(local.Category) {
			continue
		}
		if err := e.reconcileLocal(ctx, settings, accessToken, local, byID, byAppID, now, &counters); err != nil {
			return err
		}
	}

	if settings.Direction.AllowsInbound() {
		for _, ext := range externals {
			if ext.Cancelled {
				continue
			}
			if err := e.importUnmapped(ctx, settings, accessToken, ext, now, &counters); err != nil {
				return err
			}
		}
	}

	settings.RecordFullSync(syncToken, now)
	if err := e.settingsRepo.Update(ctx, settings); err != nil {
		return fmt.Errorf("failed to persist sync cursor: %w", err)
	}

	e.audit.Record(ctx, settings.UserID, calendarsync.AuditActionFullSync, true, counters.details())
	e.logger.Infow("full sync completed", "user_id", settings.UserID,
		"pushed", counters.pushed, "imported", counters.imported,
		"updated", counters.updated, "deleted", counters.deleted)
	return nil
}

// reconcileLocal settles one in-window local event against the external
// listing during a full sync.
func (e *SyncExecutor) reconcileLocal(
	ctx context.Context,
	settings *calendarsync.SyncSettings,
	accessToken string,
	local *finance.Event,
	byID, byAppID map[string]*calendarsync.ExternalEvent,
	now time.Time,
	counters *syncCounters,
) error {
	mapping, err := e.getMappingByLocal(ctx, settings.UserID, local.ID)
	if err != nil {
		return err
	}

	if mapping == nil {
		// A tagged external twin without a mapping means a lost mapping
		// row; relink instead of inserting a duplicate.
		if ext, ok := byAppID[local.ID]; ok {
			mapping = calendarsync.NewSyncMapping(settings.UserID, local.ID, ext.ID, settings.CalendarID, calendarsync.ProvenanceLocal)
			mapping.MarkSynced(calendarsync.ProvenanceLocal, ext.ETag, now)
			if err := e.createMapping(ctx, mapping); err != nil {
				return err
			}
			return nil
		}
		if !settings.Direction.AllowsOutbound() {
			return nil
		}
		if err := e.insertExternal(ctx, settings, accessToken, local, now); err != nil {
			return err
		}
		counters.pushed++
		return nil
	}

	ext, ok := byID[mapping.ExternalEventID()]
	if !ok {
		// Mapped external event vanished from the window: it was deleted
		// on the provider side.
		if settings.Direction.AllowsInbound() {
			if err := e.deleteLocal(ctx, mapping); err != nil {
				return err
			}
			counters.deleted++
			return nil
		}
		if settings.Direction.AllowsOutbound() {
			if err := e.insertExternal(ctx, settings, accessToken, local, now); err != nil {
				return err
			}
			counters.pushed++
		}
		return nil
	}

	if mapping.LastSyncedAt() != nil &&
		!local.UpdatedAt.After(*mapping.LastSyncedAt()) &&
		!ext.UpdatedAt.After(*mapping.LastSyncedAt()) {
		counters.skipped++
		return nil
	}

	return e.resolveConflict(ctx, settings, accessToken, local, ext, mapping, now, counters)
}

// resolveConflict applies last-write-wins between a mapped local and
// external pair, honoring the configured direction.
func (e *SyncExecutor) resolveConflict(
	ctx context.Context,
	settings *calendarsync.SyncSettings,
	accessToken string,
	local *finance.Event,
	ext *calendarsync.ExternalEvent,
	mapping *calendarsync.SyncMapping,
	now time.Time,
	counters *syncCounters,
) error {
	winner := calendarsync.Resolve(local.UpdatedAt, ext.UpdatedAt)

	if winner == calendarsync.ProvenanceExternal && settings.Direction.AllowsInbound() {
		eventmapper.ApplyExternal(local, ext, settings.SyncAmounts)
		local.Touch(now)
		if err := e.eventRepo.Update(ctx, local); err != nil {
			return fmt.Errorf("failed to apply external change: %w", err)
		}
		mapping.MarkSynced(calendarsync.ProvenanceExternal, ext.ETag, now)
		if err := e.mappingRepo.Update(ctx, mapping); err != nil {
			return fmt.Errorf("failed to update mapping: %w", err)
		}
		counters.updated++
		return nil
	}

	if winner == calendarsync.ProvenanceLocal && settings.Direction.AllowsOutbound() {
		outgoing := eventmapper.ToExternal(local, settings.SyncAmounts)
		outgoing.ID = mapping.ExternalEventID()
		outgoing.ETag = ext.ETag
		patched, err := e.provider.PatchEvent(ctx, accessToken, settings.CalendarID, outgoing)
		if err != nil {
			return err
		}
		mapping.MarkSynced(calendarsync.ProvenanceLocal, patched.ETag, now)
		if err := e.mappingRepo.Update(ctx, mapping); err != nil {
			return fmt.Errorf("failed to update mapping: %w", err)
		}
		counters.updated++
	}
	return nil
}

// importUnmapped links or imports one external event with no mapping yet.
func (e *SyncExecutor) importUnmapped(
	ctx context.Context,
	settings *calendarsync.SyncSettings,
	accessToken string,
	ext *calendarsync.ExternalEvent,
	now time.Time,
	counters *syncCounters,
) error {
	mapping, err := e.getMappingByExternal(ctx, settings.UserID, ext.ID)
	if err != nil {
		return err
	}
	if mapping != nil {
		return nil
	}

	if ext.AppEventID != "" {
		_, err := e.eventRepo.FindByID(ctx, ext.AppEventID)
		if err == nil {
			// Covered by reconcileLocal when in window; out-of-window
			// locals get relinked here.
			mapping = calendarsync.NewSyncMapping(settings.UserID, ext.AppEventID, ext.ID, settings.CalendarID, calendarsync.ProvenanceLocal)
			mapping.MarkSynced(calendarsync.ProvenanceLocal, ext.ETag, now)
			return e.createMapping(ctx, mapping)
		}
		if !apperrors.IsNotFoundError(err) {
			return fmt.Errorf("failed to look up local event: %w", err)
		}
		// Tagged but the local event is gone: the deletion propagates out.
		if settings.Direction.AllowsOutbound() {
			if err := e.provider.DeleteEvent(ctx, accessToken, settings.CalendarID, ext.ID); err != nil {
				return err
			}
			counters.deleted++
		}
		return nil
	}

	event := eventmapper.ToLocal(ext, settings.UserID, settings.SyncAmounts)
	if !settings.CategoryAllowed(event.Category) {
		return nil
	}
	if err := e.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to import external event: %w", err)
	}
	mapping = calendarsync.NewSyncMapping(settings.UserID, event.ID, ext.ID, settings.CalendarID, calendarsync.ProvenanceExternal)
	mapping.MarkSynced(calendarsync.ProvenanceExternal, ext.ETag, now)
	if err := e.createMapping(ctx, mapping); err != nil {
		return err
	}
	counters.imported++
	return nil
}

func (e *SyncExecutor) incrementalSync(ctx context.Context, settings *calendarsync.SyncSettings) error {
	accessToken, err := e.tokens.AccessToken(ctx, settings.UserID)
	if err != nil {
		return err
	}

	now := e.nowFn()
	externals, nextToken, err := e.provider.ListIncremental(ctx, accessToken, settings.CalendarID, settings.SyncToken)
	if err != nil {
		if errors.Is(err, calendarsync.ErrStaleSyncToken) {
			e.logger.Warnw("sync token expired, falling back to full sync", "user_id", settings.UserID)
			settings.ClearSyncToken(now)
			if updateErr := e.settingsRepo.Update(ctx, settings); updateErr != nil {
				return fmt.Errorf("failed to clear stale sync token: %w", updateErr)
			}
			return e.fullSync(ctx, settings)
		}
		e.audit.Record(ctx, settings.UserID, calendarsync.AuditActionIncrementalSync, false, map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	var counters syncCounters
	for _, ext := range externals {
		if err := e.applyChange(ctx, settings, accessToken, ext, now, &counters); err != nil {
			return err
		}
	}

	settings.RecordIncrementalSync(nextToken, now)
	if err := e.settingsRepo.Update(ctx, settings); err != nil {
		return fmt.Errorf("failed to persist sync cursor: %w", err)
	}

	e.audit.Record(ctx, settings.UserID, calendarsync.AuditActionIncrementalSync, true, counters.details())
	e.logger.Infow("incremental sync completed", "user_id", settings.UserID,
		"changes", len(externals), "imported", counters.imported,
		"updated", counters.updated, "deleted", counters.deleted, "skipped", counters.skipped)
	return nil
}

// applyChange settles one changed external event during an incremental
// sync.
func (e *SyncExecutor) applyChange(
	ctx context.Context,
	settings *calendarsync.SyncSettings,
	accessToken string,
	ext *calendarsync.ExternalEvent,
	now time.Time,
	counters *syncCounters,
) error {
	mapping, err := e.getMappingByExternal(ctx, settings.UserID, ext.ID)
	if err != nil {
		return err
	}

	if ext.Cancelled {
		if mapping == nil || !settings.Direction.AllowsInbound() {
			return nil
		}
		if err := e.deleteLocal(ctx, mapping); err != nil {
			return err
		}
		counters.deleted++
		return nil
	}

	if e.guard.ShouldSkip(mapping, calendarsync.ProvenanceLocal, now) {
		counters.skipped++
		return nil
	}

	if mapping == nil {
		if !settings.Direction.AllowsInbound() {
			return nil
		}
		return e.importUnmapped(ctx, settings, accessToken, ext, now, counters)
	}

	if !settings.Direction.AllowsInbound() {
		return nil
	}

	local, err := e.eventRepo.FindByID(ctx, mapping.LocalEventID())
	if err != nil {
		if !apperrors.IsNotFoundError(err) {
			return fmt.Errorf("failed to load local event: %w", err)
		}
		// Local side is gone; propagate the deletion outward when allowed.
		if settings.Direction.AllowsOutbound() {
			if err := e.provider.DeleteEvent(ctx, accessToken, settings.CalendarID, ext.ID); err != nil {
				return err
			}
			counters.deleted++
		}
		if err := e.mappingRepo.Delete(ctx, mapping.ID()); err != nil && !apperrors.IsNotFoundError(err) {
			return fmt.Errorf("failed to delete mapping: %w", err)
		}
		return nil
	}

	if mapping.LastSyncedAt() != nil && !ext.UpdatedAt.After(*mapping.LastSyncedAt()) {
		counters.skipped++
		return nil
	}

	return e.resolveConflict(ctx, settings, accessToken, local, ext, mapping, now, counters)
}

// PushEvent pushes one local event outward: insert when unmapped, patch
// when mapped, delete when the local event no longer exists.
func (e *SyncExecutor) PushEvent(ctx context.Context, userID, localEventID string) error {
	settings, err := e.loadEnabledSettings(ctx, userID)
	if err != nil {
		return err
	}
	if !settings.Direction.AllowsOutbound() {
		return nil
	}

	now := e.nowFn()
	mapping, err := e.getMappingByLocal(ctx, userID, localEventID)
	if err != nil {
		return err
	}

	local, err := e.eventRepo.FindByID(ctx, localEventID)
	if err != nil {
		if !apperrors.IsNotFoundError(err) {
			return fmt.Errorf("failed to load local event: %w", err)
		}
		return e.pushDeletion(ctx, settings, mapping, now)
	}

	if !settings.CategoryAllowed(local.Category) {
		return nil
	}
	if e.guard.ShouldSkip(mapping, calendarsync.ProvenanceExternal, now) {
		e.logger.Debugw("push suppressed by loop guard", "user_id", userID, "local_event_id", localEventID)
		return nil
	}

	accessToken, err := e.tokens.AccessToken(ctx, userID)
	if err != nil {
		return err
	}

	if mapping == nil {
		if err := e.insertExternal(ctx, settings, accessToken, local, now); err != nil {
			return err
		}
		e.audit.Record(ctx, userID, calendarsync.AuditActionEventPushed, true, map[string]interface{}{
			"local_event_id": localEventID,
		})
		return nil
	}

	outgoing := eventmapper.ToExternal(local, settings.SyncAmounts)
	outgoing.ID = mapping.ExternalEventID()
	outgoing.ETag = mapping.ETag()

	patched, err := e.provider.PatchEvent(ctx, accessToken, settings.CalendarID, outgoing)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			// The mapped external event was deleted; recreate it.
			return e.reinsertExternal(ctx, settings, accessToken, local, mapping, now)
		}
		mapping.MarkError(err.Error(), now)
		if updateErr := e.mappingRepo.Update(ctx, mapping); updateErr != nil {
			e.logger.Warnw("failed to record mapping error", "error", updateErr, "user_id", userID)
		}
		return err
	}

	mapping.MarkSynced(calendarsync.ProvenanceLocal, patched.ETag, now)
	if err := e.mappingRepo.Update(ctx, mapping); err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	e.audit.Record(ctx, userID, calendarsync.AuditActionEventPushed, true, map[string]interface{}{
		"local_event_id": localEventID,
	})
	return nil
}

func (e *SyncExecutor) pushDeletion(ctx context.Context, settings *calendarsync.SyncSettings, mapping *calendarsync.SyncMapping, now time.Time) error {
	if mapping == nil {
		return nil
	}

	accessToken, err := e.tokens.AccessToken(ctx, settings.UserID)
	if err != nil {
		return err
	}
	if err := e.provider.DeleteEvent(ctx, accessToken, settings.CalendarID, mapping.ExternalEventID()); err != nil {
		return err
	}
	if err := e.mappingRepo.Delete(ctx, mapping.ID()); err != nil && !apperrors.IsNotFoundError(err) {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	e.audit.Record(ctx, settings.UserID, calendarsync.AuditActionEventDeleted, true, map[string]interface{}{
		"external_event_id": mapping.ExternalEventID(),
	})
	return nil
}

// insertExternal creates the external twin of a local event together with
// its mapping. A mapping conflict from a concurrent insert resolves into
// the update path.
func (e *SyncExecutor) insertExternal(ctx context.Context, settings *calendarsync.SyncSettings, accessToken string, local *finance.Event, now time.Time) error {
	created, err := e.provider.InsertEvent(ctx, accessToken, settings.CalendarID, eventmapper.ToExternal(local, settings.SyncAmounts))
	if err != nil {
		return err
	}

	mapping := calendarsync.NewSyncMapping(settings.UserID, local.ID, created.ID, settings.CalendarID, calendarsync.ProvenanceLocal)
	mapping.MarkSynced(calendarsync.ProvenanceLocal, created.ETag, now)
	return e.createMapping(ctx, mapping)
}

// createMapping persists a new mapping. A duplicate-key race against a
// concurrent worker resolves into an update of the surviving row, pointed
// at the external event this call observed.
func (e *SyncExecutor) createMapping(ctx context.Context, mapping *calendarsync.SyncMapping) error {
	err := e.mappingRepo.Create(ctx, mapping)
	if err == nil {
		return nil
	}
	if !apperrors.IsConflictError(err) {
		return fmt.Errorf("failed to create mapping: %w", err)
	}

	existing, lookupErr := e.getMappingByLocal(ctx, mapping.UserID(), mapping.LocalEventID())
	if lookupErr != nil || existing == nil {
		return fmt.Errorf("failed to resolve mapping conflict: %w", err)
	}
	now := e.nowFn()
	existing.SetExternalEvent(mapping.ExternalEventID(), mapping.ETag(), now)
	existing.MarkSynced(mapping.Provenance(), mapping.ETag(), now)
	if err := e.mappingRepo.Update(ctx, existing); err != nil {
		return fmt.Errorf("failed to update mapping after conflict: %w", err)
	}
	return nil
}

func (e *SyncExecutor) reinsertExternal(ctx context.Context, settings *calendarsync.SyncSettings, accessToken string, local *finance.Event, mapping *calendarsync.SyncMapping, now time.Time) error {
	created, err := e.provider.InsertEvent(ctx, accessToken, settings.CalendarID, eventmapper.ToExternal(local, settings.SyncAmounts))
	if err != nil {
		return err
	}
	mapping.SetExternalEvent(created.ID, created.ETag, now)
	mapping.MarkSynced(calendarsync.ProvenanceLocal, created.ETag, now)
	if err := e.mappingRepo.Update(ctx, mapping); err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	return nil
}

func (e *SyncExecutor) deleteLocal(ctx context.Context, mapping *calendarsync.SyncMapping) error {
	if err := e.eventRepo.Delete(ctx, mapping.LocalEventID()); err != nil && !apperrors.IsNotFoundError(err) {
		return fmt.Errorf("failed to delete local event: %w", err)
	}
	if err := e.mappingRepo.Delete(ctx, mapping.ID()); err != nil && !apperrors.IsNotFoundError(err) {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}

func (e *SyncExecutor) getMappingByLocal(ctx context.Context, userID, localEventID string) (*calendarsync.SyncMapping, error) {
	mapping, err := e.mappingRepo.GetByLocalEventID(ctx, userID, localEventID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load mapping: %w", err)
	}
	return mapping, nil
}

func (e *SyncExecutor) getMappingByExternal(ctx context.Context, userID, externalEventID string) (*calendarsync.SyncMapping, error) {
	mapping, err := e.mappingRepo.GetByExternalEventID(ctx, userID, externalEventID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load mapping: %w", err)
	}
	return mapping, nil
}
