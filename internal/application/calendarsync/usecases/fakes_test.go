package usecases

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/domain/finance"
	apperrors "aegiswallet/internal/shared/errors"
)

type fakeCredentialRepo struct {
	mu     sync.Mutex
	byUser map[string]*calendarsync.OAuthCredential
	nextID uint
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{byUser: make(map[string]*calendarsync.OAuthCredential)}
}

func (r *fakeCredentialRepo) Save(_ context.Context, credential *calendarsync.OAuthCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byUser[credential.UserID]; ok {
		credential.ID = existing.ID
	} else {
		r.nextID++
		credential.ID = r.nextID
	}
	r.byUser[credential.UserID] = credential
	return nil
}

func (r *fakeCredentialRepo) GetByUserID(_ context.Context, userID string) (*calendarsync.OAuthCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	credential, ok := r.byUser[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("credential not found")
	}
	copied := *credential
	return &copied, nil
}

func (r *fakeCredentialRepo) Update(_ context.Context, credential *calendarsync.OAuthCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[credential.UserID]; !ok {
		return apperrors.NewNotFoundError("credential not found")
	}
	copied := *credential
	r.byUser[credential.UserID] = &copied
	return nil
}

func (r *fakeCredentialRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	return nil
}

type fakeSettingsRepo struct {
	mu     sync.Mutex
	byUser map[string]*calendarsync.SyncSettings
	nextID uint
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{byUser: make(map[string]*calendarsync.SyncSettings)}
}

func (r *fakeSettingsRepo) Save(_ context.Context, settings *calendarsync.SyncSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byUser[settings.UserID]; ok {
		settings.ID = existing.ID
	} else {
		r.nextID++
		settings.ID = r.nextID
	}
	copied := *settings
	r.byUser[settings.UserID] = &copied
	return nil
}

func (r *fakeSettingsRepo) Update(ctx context.Context, settings *calendarsync.SyncSettings) error {
	r.mu.Lock()
	if _, ok := r.byUser[settings.UserID]; !ok {
		r.mu.Unlock()
		return apperrors.NewNotFoundError("sync settings not found")
	}
	r.mu.Unlock()
	return r.Save(ctx, settings)
}

func (r *fakeSettingsRepo) GetByUserID(_ context.Context, userID string) (*calendarsync.SyncSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings, ok := r.byUser[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("sync settings not found")
	}
	copied := *settings
	return &copied, nil
}

func (r *fakeSettingsRepo) GetByChannel(_ context.Context, channelID, resourceID string) (*calendarsync.SyncSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, settings := range r.byUser {
		if settings.ChannelID == channelID && settings.ChannelResourceID == resourceID {
			copied := *settings
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFoundError("no settings for webhook channel")
}

func (r *fakeSettingsRepo) ListExpiringChannels(_ context.Context, before time.Time) ([]*calendarsync.SyncSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*calendarsync.SyncSettings
	for _, settings := range r.byUser {
		if settings.Enabled && settings.HasChannel() && settings.ChannelExpiresAt.Before(before) {
			copied := *settings
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeSettingsRepo) ListWithoutActiveChannel(_ context.Context, now time.Time) ([]*calendarsync.SyncSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*calendarsync.SyncSettings
	for _, settings := range r.byUser {
		if !settings.Enabled {
			continue
		}
		if settings.HasChannel() && settings.ChannelExpiresAt.After(now) {
			continue
		}
		copied := *settings
		result = append(result, &copied)
	}
	return result, nil
}

func (r *fakeSettingsRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	return nil
}

type fakeMappingRepo struct {
	mu              sync.Mutex
	mappings        map[uint]*calendarsync.SyncMapping
	nextID          uint
	conflictOnce    bool
	conflictHandled bool
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{mappings: make(map[uint]*calendarsync.SyncMapping)}
}

func (r *fakeMappingRepo) Create(_ context.Context, mapping *calendarsync.SyncMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictOnce && !r.conflictHandled {
		// Simulate a concurrent worker winning the insert race.
		r.conflictHandled = true
		rival := calendarsync.NewSyncMapping(mapping.UserID(), mapping.LocalEventID(), "ext-race", "primary", calendarsync.ProvenanceLocal)
		r.nextID++
		rival.SetID(r.nextID)
		r.mappings[r.nextID] = rival
		return apperrors.NewConflictError("mapping already exists for this event")
	}
	for _, existing := range r.mappings {
		if existing.UserID() == mapping.UserID() &&
			(existing.LocalEventID() == mapping.LocalEventID() || existing.ExternalEventID() == mapping.ExternalEventID()) {
			return apperrors.NewConflictError("mapping already exists for this event")
		}
	}
	r.nextID++
	mapping.SetID(r.nextID)
	r.mappings[r.nextID] = mapping
	return nil
}

func (r *fakeMappingRepo) Update(_ context.Context, mapping *calendarsync.SyncMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mappings[mapping.ID()]; !ok {
		return apperrors.NewNotFoundError("sync mapping not found")
	}
	r.mappings[mapping.ID()] = mapping
	return nil
}

func (r *fakeMappingRepo) GetByLocalEventID(_ context.Context, userID, localEventID string) (*calendarsync.SyncMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mapping := range r.mappings {
		if mapping.UserID() == userID && mapping.LocalEventID() == localEventID {
			return mapping, nil
		}
	}
	return nil, apperrors.NewNotFoundError("sync mapping not found")
}

func (r *fakeMappingRepo) GetByExternalEventID(_ context.Context, userID, externalEventID string) (*calendarsync.SyncMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mapping := range r.mappings {
		if mapping.UserID() == userID && mapping.ExternalEventID() == externalEventID {
			return mapping, nil
		}
	}
	return nil, apperrors.NewNotFoundError("sync mapping not found")
}

func (r *fakeMappingRepo) ListByUser(_ context.Context, userID string) ([]*calendarsync.SyncMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*calendarsync.SyncMapping
	for _, mapping := range r.mappings {
		if mapping.UserID() == userID {
			result = append(result, mapping)
		}
	}
	return result, nil
}

func (r *fakeMappingRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mappings[id]; !ok {
		return apperrors.NewNotFoundError("sync mapping not found")
	}
	delete(r.mappings, id)
	return nil
}

func (r *fakeMappingRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, mapping := range r.mappings {
		if mapping.UserID() == userID {
			delete(r.mappings, id)
		}
	}
	return nil
}

func (r *fakeMappingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mappings)
}

type fakeQueueRepo struct {
	mu     sync.Mutex
	items  map[uint]*calendarsync.SyncQueueItem
	nextID uint
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{items: make(map[uint]*calendarsync.SyncQueueItem)}
}

func (r *fakeQueueRepo) Create(_ context.Context, item *calendarsync.SyncQueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item.SetID(r.nextID)
	r.items[r.nextID] = item
	return nil
}

func (r *fakeQueueRepo) Update(_ context.Context, item *calendarsync.SyncQueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID()]; !ok {
		return apperrors.NewNotFoundError("queue item not found")
	}
	r.items[item.ID()] = item
	return nil
}

func (r *fakeQueueRepo) ClaimDue(_ context.Context, limit int, now time.Time) ([]*calendarsync.SyncQueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*calendarsync.SyncQueueItem
	for _, item := range r.items {
		if item.Due(now) {
			due = append(due, item)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority() != due[j].Priority() {
			return due[i].Priority() > due[j].Priority()
		}
		return due[i].CreatedAt().Before(due[j].CreatedAt())
	})
	if len(due) > limit {
		due = due[:limit]
	}
	for _, item := range due {
		if err := item.Start(now); err != nil {
			return nil, err
		}
	}
	return due, nil
}

func (r *fakeQueueRepo) CountPendingByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, item := range r.items {
		if item.UserID() == userID &&
			(item.Status() == calendarsync.QueueStatusPending || item.Status() == calendarsync.QueueStatusProcessing) {
			count++
		}
	}
	return count, nil
}

func (r *fakeQueueRepo) DeleteOpenByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, item := range r.items {
		if item.UserID() == userID &&
			(item.Status() == calendarsync.QueueStatusPending || item.Status() == calendarsync.QueueStatusProcessing) {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *fakeQueueRepo) byUser(userID string) []*calendarsync.SyncQueueItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*calendarsync.SyncQueueItem
	for _, item := range r.items {
		if item.UserID() == userID {
			result = append(result, item)
		}
	}
	return result
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*calendarsync.AuditEntry
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *calendarsync.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) ListByUser(_ context.Context, userID string, limit int) ([]*calendarsync.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*calendarsync.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID != userID {
			continue
		}
		result = append(result, r.entries[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *fakeAuditRepo) actions(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []string
	for _, entry := range r.entries {
		if entry.UserID == userID {
			result = append(result, entry.Action)
		}
	}
	return result
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*finance.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*finance.Event)}
}

func (r *fakeEventRepo) Create(_ context.Context, event *finance.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; ok {
		return apperrors.NewConflictError("financial event already exists")
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *fakeEventRepo) Update(_ context.Context, event *finance.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return apperrors.NewNotFoundError("financial event not found")
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return apperrors.NewNotFoundError("financial event not found")
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) FindByID(_ context.Context, id string) (*finance.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("financial event not found")
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) FindByUser(_ context.Context, userID string) ([]*finance.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*finance.Event
	for _, event := range r.events {
		if event.UserID == userID {
			copied := *event
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeEventRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// fakeProvider is a stateful in-memory calendar: inserts, patches and
// deletes mutate its event store so repeated syncs observe their own
// earlier writes.
type fakeProvider struct {
	mu          sync.Mutex
	events      map[string]*calendarsync.ExternalEvent
	changes     []*calendarsync.ExternalEvent
	windowToken string
	nextToken   string
	stale       bool
	clock       time.Time
	nextID      int
	insertCalls int
	patchCalls  int
	deleteCalls int
	watchCalls  int
	stopCalls   int
	watchErr    error
	listErr     error
}

func newFakeProvider(clock time.Time) *fakeProvider {
	return &fakeProvider{
		events:      make(map[string]*calendarsync.ExternalEvent),
		windowToken: "window-token",
		nextToken:   "next-token",
		clock:       clock,
	}
}

func (p *fakeProvider) addEvent(ext *calendarsync.ExternalEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[ext.ID] = ext
}

func (p *fakeProvider) ListWindow(_ context.Context, _, _ string, _, _ time.Time) ([]*calendarsync.ExternalEvent, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, "", p.listErr
	}
	var result []*calendarsync.ExternalEvent
	for _, ext := range p.events {
		if !ext.Cancelled {
			copied := *ext
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, p.windowToken, nil
}

func (p *fakeProvider) ListIncremental(_ context.Context, _, _, _ string) ([]*calendarsync.ExternalEvent, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stale {
		return nil, "", calendarsync.ErrStaleSyncToken
	}
	changes := p.changes
	p.changes = nil
	return changes, p.nextToken, nil
}

func (p *fakeProvider) InsertEvent(_ context.Context, _, _ string, event *calendarsync.ExternalEvent) (*calendarsync.ExternalEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.insertCalls++
	p.nextID++
	created := *event
	created.ID = fmt.Sprintf("ext-%d", p.nextID)
	created.ETag = fmt.Sprintf(`"etag-%d"`, p.nextID)
	created.UpdatedAt = p.clock
	p.events[created.ID] = &created
	return &created, nil
}

func (p *fakeProvider) PatchEvent(_ context.Context, _, _ string, event *calendarsync.ExternalEvent) (*calendarsync.ExternalEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patchCalls++
	existing, ok := p.events[event.ID]
	if !ok {
		return nil, apperrors.NewNotFoundError("event not found")
	}
	patched := *event
	patched.ETag = existing.ETag + "'"
	patched.UpdatedAt = p.clock
	p.events[event.ID] = &patched
	return &patched, nil
}

func (p *fakeProvider) DeleteEvent(_ context.Context, _, _, eventID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteCalls++
	delete(p.events, eventID)
	return nil
}

func (p *fakeProvider) WatchEvents(_ context.Context, _, _, channelID, _, _ string, ttl time.Duration) (*calendarsync.ChannelInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchCalls++
	if p.watchErr != nil {
		return nil, p.watchErr
	}
	return &calendarsync.ChannelInfo{
		ID:         channelID,
		ResourceID: "resource-" + channelID,
		ExpiresAt:  p.clock.Add(ttl),
	}, nil
}

func (p *fakeProvider) StopChannel(_ context.Context, _, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCalls++
	return nil
}

type fakeOAuth struct {
	mu           sync.Mutex
	refreshed    *calendarsync.TokenSet
	refreshErr   error
	exchanged    *calendarsync.TokenSet
	exchangeErr  error
	refreshCalls int
	revokeErr    error
	revokeCalls  int
	revokedToken string
}

func (o *fakeOAuth) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (o *fakeOAuth) Exchange(_ context.Context, _ string) (*calendarsync.TokenSet, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.exchangeErr != nil {
		return nil, o.exchangeErr
	}
	return o.exchanged, nil
}

func (o *fakeOAuth) Refresh(_ context.Context, _ string) (*calendarsync.TokenSet, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshCalls++
	if o.refreshErr != nil {
		return nil, o.refreshErr
	}
	return o.refreshed, nil
}

func (o *fakeOAuth) Revoke(_ context.Context, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.revokeCalls++
	o.revokedToken = token
	return o.revokeErr
}

type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]string)}
}

func (s *fakeStateStore) Set(_ context.Context, state, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = userID
	return nil
}

func (s *fakeStateStore) VerifyAndGet(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.states[state]
	if !ok {
		return "", fmt.Errorf("unknown state")
	}
	delete(s.states, state)
	return userID, nil
}
