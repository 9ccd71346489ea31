package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/shared/biztime"
	apperrors "aegiswallet/internal/shared/errors"
	"aegiswallet/internal/shared/logger"
)

// TokenService hands out usable access tokens, refreshing them ahead of
// expiry. A credential that cannot be refreshed is invalidated so it is
// never retried until the user reconnects.
type TokenService struct {
	credentialRepo calendarsync.CredentialRepository
	oauth          calendarsync.OAuthProvider
	audit          *AuditRecorder
	logger         logger.Interface
	nowFn          func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(
	credentialRepo calendarsync.CredentialRepository,
	oauth calendarsync.OAuthProvider,
	audit *AuditRecorder,
	logger logger.Interface,
) *TokenService {
	return &TokenService{
		credentialRepo: credentialRepo,
		oauth:          oauth,
		audit:          audit,
		logger:         logger,
		nowFn:          biztime.NowUTC,
	}
}

// AccessToken returns an access token valid for at least the refresh
// buffer. ErrNoCredential means the user never connected;
// ErrReauthorizationRequired means the stored grant is dead.
func (s *TokenService) AccessToken(ctx context.Context, userID string) (string, error) {
	credential, err := s.credentialRepo.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return "", calendarsync.ErrNoCredential
		}
		return "", fmt.Errorf("failed to load credential: %w", err)
	}

	if !credential.Valid {
		return "", calendarsync.ErrReauthorizationRequired
	}

	now := s.nowFn()
	if !credential.NeedsRefresh(now) {
		credential.MarkUsed(now)
		if err := s.credentialRepo.Update(ctx, credential); err != nil {
			s.logger.Warnw("failed to record credential use", "error", err, "user_id", userID)
		}
		return credential.AccessToken, nil
	}

	tokens, err := s.oauth.Refresh(ctx, credential.RefreshToken)
	if err != nil {
		if errors.Is(err, calendarsync.ErrReauthorizationRequired) {
			credential.Invalidate(now)
			if updateErr := s.credentialRepo.Update(ctx, credential); updateErr != nil {
				s.logger.Errorw("failed to invalidate credential", "error", updateErr, "user_id", userID)
			}
			s.audit.Record(ctx, userID, calendarsync.AuditActionCredentialInvalid, false, map[string]interface{}{
				"reason": "refresh rejected",
			})
			return "", calendarsync.ErrReauthorizationRequired
		}
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	credential.ApplyRefresh(tokens.AccessToken, tokens.ExpiresAt, now)
	if tokens.RefreshToken != "" {
		credential.RefreshToken = tokens.RefreshToken
	}
	if err := s.credentialRepo.Update(ctx, credential); err != nil {
		return "", fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	s.logger.Debugw("access token refreshed", "user_id", userID, "expires_at", tokens.ExpiresAt)
	return credential.AccessToken, nil
}
