package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"aegiswallet/internal/application/calendarsync/usecases"
	"aegiswallet/internal/shared/logger"
)

type webhookProcessor interface {
	Execute(ctx context.Context, cmd usecases.HandleWebhookCommand) error
}

// WebhookHandler receives Google Calendar push notifications. It always
// answers 200 so the provider never learns whether a notification was
// accepted, dropped or forged; retrying a rejected notification would not
// change the outcome.
type WebhookHandler struct {
	processor webhookProcessor
	logger    logger.Interface
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(processor webhookProcessor, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    logger,
	}
}

// Notify handles one push notification delivery.
func (h *WebhookHandler) Notify(c *gin.Context) {
	cmd := usecases.HandleWebhookCommand{
		ChannelID:     c.GetHeader("X-Goog-Channel-ID"),
		ResourceID:    c.GetHeader("X-Goog-Resource-ID"),
		ResourceState: c.GetHeader("X-Goog-Resource-State"),
		Token:         c.GetHeader("X-Goog-Channel-Token"),
	}

	if err := h.processor.Execute(c.Request.Context(), cmd); err != nil {
		// Internal failure, not a bad notification. Still 200: the job queue
		// and polling fallback cover missed deliveries.
		h.logger.Errorw("failed to process webhook notification",
			"error", err, "channel_id", cmd.ChannelID)
	}

	c.Status(http.StatusOK)
}
