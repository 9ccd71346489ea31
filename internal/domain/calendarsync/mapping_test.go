package calendarsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncMapping_MarkSynced(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewSyncMapping("user-1", "local-1", "ext-1", "primary", ProvenanceLocal)
	require.Equal(t, MappingStatusPending, m.Status())
	require.Zero(t, m.Version())

	m.MarkSynced(ProvenanceLocal, `"etag-1"`, now)

	assert.Equal(t, MappingStatusSynced, m.Status())
	assert.Equal(t, ProvenanceLocal, m.Provenance())
	assert.Equal(t, `"etag-1"`, m.ETag())
	assert.Equal(t, 1, m.Version())
	require.NotNil(t, m.LastSyncedAt())
	assert.Equal(t, now, *m.LastSyncedAt())

	// Version increments on every successful write-through.
	m.MarkSynced(ProvenanceExternal, "", now.Add(time.Minute))
	assert.Equal(t, 2, m.Version())
	assert.Equal(t, ProvenanceExternal, m.Provenance())
	// Empty etag keeps the previous one.
	assert.Equal(t, `"etag-1"`, m.ETag())
}

func TestSyncMapping_MarkError(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewSyncMapping("user-1", "local-1", "ext-1", "primary", ProvenanceLocal)

	m.MarkError("provider unavailable", now)
	assert.Equal(t, MappingStatusError, m.Status())
	assert.Equal(t, "provider unavailable", m.ErrorMessage())

	// A later successful write clears the error.
	m.MarkSynced(ProvenanceLocal, "", now.Add(time.Minute))
	assert.Empty(t, m.ErrorMessage())
}

func TestSyncMapping_SetExternalEvent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewSyncMapping("user-1", "local-1", "ext-1", "primary", ProvenanceLocal)

	m.SetExternalEvent("ext-2", `"etag-2"`, now)
	assert.Equal(t, "ext-2", m.ExternalEventID())
	assert.Equal(t, `"etag-2"`, m.ETag())
}

func TestProvenance_Opposite(t *testing.T) {
	assert.Equal(t, ProvenanceExternal, ProvenanceLocal.Opposite())
	assert.Equal(t, ProvenanceLocal, ProvenanceExternal.Opposite())
}
