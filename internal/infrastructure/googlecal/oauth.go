package googlecal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/shared/config"
)

// revokeEndpoint is Google's OAuth 2.0 token revocation endpoint.
const revokeEndpoint = "https://oauth2.googleapis.com/revoke"

// OAuthProvider implements the calendarsync.OAuthProvider port against
// Google's OAuth 2.0 endpoints.
type OAuthProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewOAuthProvider creates an OAuthProvider from application config.
func NewOAuthProvider(cfg *config.GoogleOAuthConfig) *OAuthProvider {
	return &OAuthProvider{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthCodeURL builds the consent URL. Offline access with forced consent is
// required so Google returns a refresh token.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*calendarsync.TokenSet, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tokenSetFromOAuth2(token), nil
}

// Refresh trades a refresh token for a new access token. A revoked or
// expired grant maps to ErrReauthorizationRequired.
func (p *OAuthProvider) Refresh(ctx context.Context, refreshToken string) (*calendarsync.TokenSet, error) {
	source := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		if isInvalidGrant(err) {
			return nil, calendarsync.ErrReauthorizationRequired
		}
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	return tokenSetFromOAuth2(token), nil
}

// Revoke invalidates a refresh or access token on Google's side. Google
// answers 400 for tokens that are already invalid; nothing is left to
// revoke in that case, so it counts as success.
func (p *OAuthProvider) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call revoke endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("revoke endpoint answered %d", resp.StatusCode)
	}
	return nil
}

func tokenSetFromOAuth2(token *oauth2.Token) *calendarsync.TokenSet {
	set := &calendarsync.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.UTC(),
	}
	if scope, ok := token.Extra("scope").(string); ok {
		set.Scope = scope
	}
	return set
}

func isInvalidGrant(err error) bool {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		return retrieve.ErrorCode == "invalid_grant"
	}
	return strings.Contains(err.Error(), "invalid_grant")
}
