package calendarsync

import "time"

// DefaultLoopWindow is the default suppression window of the loop guard.
// Tunable via sync.loop_window_seconds; the bound is heuristic, not exact,
// under worker clock skew or slow provider propagation.
const DefaultLoopWindow = 5 * time.Second

// LoopGuard suppresses echo writes: a webhook caused by the engine's own
// push must not re-trigger a sync in the opposite direction.
type LoopGuard struct {
	window time.Duration
}

// NewLoopGuard creates a guard with the given suppression window. A zero
// or negative window falls back to the default.
func NewLoopGuard(window time.Duration) *LoopGuard {
	if window <= 0 {
		window = DefaultLoopWindow
	}
	return &LoopGuard{window: window}
}

// Window returns the suppression window.
func (g *LoopGuard) Window() time.Duration {
	return g.window
}

// ShouldSkip reports whether a write toward destination should be
// suppressed. If the mapping's last synced change originated on the
// destination side and happened within the window, the incoming change is
// the engine's own write echoing back.
func (g *LoopGuard) ShouldSkip(mapping *SyncMapping, destination Provenance, now time.Time) bool {
	if mapping == nil || mapping.LastSyncedAt() == nil {
		return false
	}
	if mapping.Provenance() != destination {
		return false
	}
	return now.Sub(*mapping.LastSyncedAt()) < g.window
}

// Resolve picks the winning side of a concurrent modification by
// last-write-wins. Ties favor the local side so resolution is
// deterministic and cannot oscillate.
func Resolve(localModifiedAt, externalModifiedAt time.Time) Provenance {
	if externalModifiedAt.After(localModifiedAt) {
		return ProvenanceExternal
	}
	return ProvenanceLocal
}
