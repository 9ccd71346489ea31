package calendarsync

import (
	"time"

	"aegiswallet/internal/shared/biztime"
)

// Provenance records which side most recently wrote a mapped event. It is
// the basis of loop prevention.
type Provenance string

const (
	ProvenanceLocal    Provenance = "local"
	ProvenanceExternal Provenance = "external"
)

// Opposite returns the other side.
func (p Provenance) Opposite() Provenance {
	if p == ProvenanceLocal {
		return ProvenanceExternal
	}
	return ProvenanceLocal
}

// MappingStatus is the sync state of a mapping.
type MappingStatus string

const (
	MappingStatusSynced  MappingStatus = "synced"
	MappingStatusPending MappingStatus = "pending"
	MappingStatusError   MappingStatus = "error"
)

// SyncMapping links exactly one local financial event to exactly one
// external calendar event for a user. Unique on (user, local id) and on
// (user, external id).
type SyncMapping struct {
	id                 uint
	userID             string
	localEventID       string
	externalEventID    string
	externalCalendarID string
	status             MappingStatus
	provenance         Provenance
	etag               string
	version            int
	lastSyncedAt       *time.Time
	lastModifiedAt     *time.Time
	errorMessage       string
	createdAt          time.Time
	updatedAt          time.Time
}

// NewSyncMapping creates a pending mapping between a local and an external
// event. provenance records which side originated the link.
func NewSyncMapping(userID, localEventID, externalEventID, externalCalendarID string, provenance Provenance) *SyncMapping {
	now := biztime.NowUTC()
	return &SyncMapping{
		userID:             userID,
		localEventID:       localEventID,
		externalEventID:    externalEventID,
		externalCalendarID: externalCalendarID,
		status:             MappingStatusPending,
		provenance:         provenance,
		createdAt:          now,
		updatedAt:          now,
	}
}

// MarkSynced records a successful write-through. The version counter
// increments on every successful write.
func (m *SyncMapping) MarkSynced(provenance Provenance, etag string, now time.Time) {
	m.status = MappingStatusSynced
	m.provenance = provenance
	if etag != "" {
		m.etag = etag
	}
	m.version++
	m.lastSyncedAt = &now
	m.lastModifiedAt = &now
	m.errorMessage = ""
	m.updatedAt = now
}

// MarkError records a failed write-through.
func (m *SyncMapping) MarkError(message string, now time.Time) {
	m.status = MappingStatusError
	m.errorMessage = message
	m.updatedAt = now
}

// SetExternalEvent repoints the mapping at a different external event.
// Used when a duplicate-create race resolves into an update path.
func (m *SyncMapping) SetExternalEvent(externalEventID, etag string, now time.Time) {
	m.externalEventID = externalEventID
	m.etag = etag
	m.updatedAt = now
}

func (m *SyncMapping) ID() uint                    { return m.id }
func (m *SyncMapping) UserID() string              { return m.userID }
func (m *SyncMapping) LocalEventID() string        { return m.localEventID }
func (m *SyncMapping) ExternalEventID() string     { return m.externalEventID }
func (m *SyncMapping) ExternalCalendarID() string  { return m.externalCalendarID }
func (m *SyncMapping) Status() MappingStatus       { return m.status }
func (m *SyncMapping) Provenance() Provenance      { return m.provenance }
func (m *SyncMapping) ETag() string                { return m.etag }
func (m *SyncMapping) Version() int                { return m.version }
func (m *SyncMapping) LastSyncedAt() *time.Time    { return m.lastSyncedAt }
func (m *SyncMapping) LastModifiedAt() *time.Time  { return m.lastModifiedAt }
func (m *SyncMapping) ErrorMessage() string        { return m.errorMessage }
func (m *SyncMapping) CreatedAt() time.Time        { return m.createdAt }
func (m *SyncMapping) UpdatedAt() time.Time        { return m.updatedAt }

// SetID sets the mapping ID after persistence (used by repository after Create)
func (m *SyncMapping) SetID(id uint) {
	m.id = id
}

// SyncMappingReconstructParams carries persisted state back into a domain
// entity.
type SyncMappingReconstructParams struct {
	ID                 uint
	UserID             string
	LocalEventID       string
	ExternalEventID    string
	ExternalCalendarID string
	Status             MappingStatus
	Provenance         Provenance
	ETag               string
	Version            int
	LastSyncedAt       *time.Time
	LastModifiedAt     *time.Time
	ErrorMessage       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReconstructSyncMapping rebuilds a mapping from persistence.
func ReconstructSyncMapping(p SyncMappingReconstructParams) *SyncMapping {
	return &SyncMapping{
		id:                 p.ID,
		userID:             p.UserID,
		localEventID:       p.LocalEventID,
		externalEventID:    p.ExternalEventID,
		externalCalendarID: p.ExternalCalendarID,
		status:             p.Status,
		provenance:         p.Provenance,
		etag:               p.ETag,
		version:            p.Version,
		lastSyncedAt:       p.LastSyncedAt,
		lastModifiedAt:     p.LastModifiedAt,
		errorMessage:       p.ErrorMessage,
		createdAt:          p.CreatedAt,
		updatedAt:          p.UpdatedAt,
	}
}
