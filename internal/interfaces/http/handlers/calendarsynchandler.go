package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aegiswallet/internal/application/calendarsync/usecases"
	"aegiswallet/internal/shared/errors"
	"aegiswallet/internal/shared/logger"
	"aegiswallet/internal/shared/utils"
)

// Authentication is handled upstream; handlers identify the user through the
// user_id query parameter the gateway injects.

type connectInitiator interface {
	Execute(ctx context.Context, cmd usecases.InitiateConnectCommand) (*usecases.InitiateConnectResult, error)
}

type callbackHandler interface {
	Execute(ctx context.Context, cmd usecases.HandleConnectCallbackCommand) (*usecases.HandleConnectCallbackResult, error)
}

type syncEnqueuer interface {
	EnqueueInbound(ctx context.Context, userID string, priority int) error
}

type statusReader interface {
	Execute(ctx context.Context, userID string) (*usecases.GetSyncStatusResult, error)
}

type disconnector interface {
	Execute(ctx context.Context, cmd usecases.DisconnectCommand) error
}

// CalendarSyncHandler exposes the calendar connection lifecycle over HTTP.
type CalendarSyncHandler struct {
	initiate     connectInitiator
	callback     callbackHandler
	queue        syncEnqueuer
	status       statusReader
	disconnect   disconnector
	highPriority int
	logger       logger.Interface
}

// NewCalendarSyncHandler creates a CalendarSyncHandler.
func NewCalendarSyncHandler(
	initiate connectInitiator,
	callback callbackHandler,
	queue syncEnqueuer,
	status statusReader,
	disconnect disconnector,
	highPriority int,
	logger logger.Interface,
) *CalendarSyncHandler {
	return &CalendarSyncHandler{
		initiate:     initiate,
		callback:     callback,
		queue:        queue,
		status:       status,
		disconnect:   disconnect,
		highPriority: highPriority,
		logger:       logger,
	}
}

type connectResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// Connect returns the provider consent URL for the user to visit.
func (h *CalendarSyncHandler) Connect(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		utils.ErrorResponseWithError(c, errors.NewValidationError("user_id is required"))
		return
	}

	result, err := h.initiate.Execute(c.Request.Context(), usecases.InitiateConnectCommand{UserID: userID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "connection initiated", connectResponse{
		AuthURL: result.AuthURL,
		State:   result.State,
	})
}

// Callback completes the OAuth flow after the provider redirects back.
func (h *CalendarSyncHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		utils.ErrorResponseWithError(c, errors.NewValidationError("code and state are required"))
		return
	}

	result, err := h.callback.Execute(c.Request.Context(), usecases.HandleConnectCallbackCommand{
		Code:  code,
		State: state,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "calendar connected", gin.H{"user_id": result.UserID})
}

// SyncNow queues an immediate inbound sync for the user.
func (h *CalendarSyncHandler) SyncNow(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		utils.ErrorResponseWithError(c, errors.NewValidationError("user_id is required"))
		return
	}

	if err := h.queue.EnqueueInbound(c.Request.Context(), userID, h.highPriority); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "sync queued", nil)
}

type statusResponse struct {
	Connected             bool       `json:"connected"`
	CredentialValid       bool       `json:"credential_valid"`
	Enabled               bool       `json:"enabled"`
	Direction             string     `json:"direction,omitempty"`
	CalendarID            string     `json:"calendar_id,omitempty"`
	LastFullSyncAt        *time.Time `json:"last_full_sync_at,omitempty"`
	LastIncrementalSyncAt *time.Time `json:"last_incremental_sync_at,omitempty"`
	PendingJobs           int64      `json:"pending_jobs"`
	ChannelActive         bool       `json:"channel_active"`
	ChannelExpiresAt      *time.Time `json:"channel_expires_at,omitempty"`
}

// Status reports the user's connection and sync state.
func (h *CalendarSyncHandler) Status(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		utils.ErrorResponseWithError(c, errors.NewValidationError("user_id is required"))
		return
	}

	result, err := h.status.Execute(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", statusResponse{
		Connected:             result.Connected,
		CredentialValid:       result.CredentialValid,
		Enabled:               result.Enabled,
		Direction:             string(result.Direction),
		CalendarID:            result.CalendarID,
		LastFullSyncAt:        result.LastFullSyncAt,
		LastIncrementalSyncAt: result.LastIncrementalSyncAt,
		PendingJobs:           result.PendingJobs,
		ChannelActive:         result.ChannelActive,
		ChannelExpiresAt:      result.ChannelExpiresAt,
	})
}

// Disconnect severs the user's calendar connection.
func (h *CalendarSyncHandler) Disconnect(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		utils.ErrorResponseWithError(c, errors.NewValidationError("user_id is required"))
		return
	}

	if err := h.disconnect.Execute(c.Request.Context(), usecases.DisconnectCommand{UserID: userID}); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}
