package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// oauthStateTTL bounds how long a started OAuth flow stays valid.
const oauthStateTTL = 10 * time.Minute

type stateEntry struct {
	userID    string
	expiresAt time.Time
}

// OAuthStateStore holds short-lived OAuth state tokens in memory. States
// are single use: verification consumes them.
type OAuthStateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
	nowFn   func() time.Time
}

// NewOAuthStateStore creates an OAuthStateStore.
func NewOAuthStateStore() *OAuthStateStore {
	return &OAuthStateStore{
		entries: make(map[string]stateEntry),
		nowFn:   time.Now,
	}
}

// Set binds a state token to the user who started the flow.
func (s *OAuthStateStore) Set(_ context.Context, state, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	for key, entry := range s.entries {
		if entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}

	s.entries[state] = stateEntry{
		userID:    userID,
		expiresAt: now.Add(oauthStateTTL),
	}
	return nil
}

// VerifyAndGet consumes a state token and returns the bound user id.
func (s *OAuthStateStore) VerifyAndGet(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return "", fmt.Errorf("unknown state")
	}
	delete(s.entries, state)

	if entry.expiresAt.Before(s.nowFn()) {
		return "", fmt.Errorf("state expired")
	}
	return entry.userID, nil
}
