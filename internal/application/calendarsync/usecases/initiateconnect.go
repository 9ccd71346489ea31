package usecases

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/shared/logger"
)

// StateStore holds short-lived OAuth state tokens bound to the user who
// started the flow.
type StateStore interface {
	Set(ctx context.Context, state, userID string) error
	// VerifyAndGet consumes a state token and returns the bound user id.
	VerifyAndGet(ctx context.Context, state string) (string, error)
}

type InitiateConnectCommand struct {
	UserID string
}

type InitiateConnectResult struct {
	AuthURL string
	State   string
}

// InitiateConnectUseCase starts the calendar connection flow by producing
// the provider consent URL.
type InitiateConnectUseCase struct {
	oauth      calendarsync.OAuthProvider
	stateStore StateStore
	logger     logger.Interface
}

// NewInitiateConnectUseCase creates an InitiateConnectUseCase.
func NewInitiateConnectUseCase(
	oauth calendarsync.OAuthProvider,
	stateStore StateStore,
	logger logger.Interface,
) *InitiateConnectUseCase {
	return &InitiateConnectUseCase{
		oauth:      oauth,
		stateStore: stateStore,
		logger:     logger,
	}
}

func (uc *InitiateConnectUseCase) Execute(ctx context.Context, cmd InitiateConnectCommand) (*InitiateConnectResult, error) {
	state, err := generateState()
	if err != nil {
		uc.logger.Errorw("failed to generate state", "error", err)
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	if err := uc.stateStore.Set(ctx, state, cmd.UserID); err != nil {
		uc.logger.Errorw("failed to store OAuth state", "error", err, "user_id", cmd.UserID)
		return nil, fmt.Errorf("failed to store state: %w", err)
	}

	uc.logger.Infow("calendar connection initiated", "user_id", cmd.UserID)
	return &InitiateConnectResult{
		AuthURL: uc.oauth.AuthCodeURL(state),
		State:   state,
	}, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
