// Package handlers provides HTTP handlers for the Storyblok preview host
package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/pipeline"
	domain "github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/bridge"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/logging"
)

// WebhookSignatureHeader carries hex(hmac-sha1(secret, body)).
const WebhookSignatureHeader = "Webhook-Signature"

const maxWebhookBody = 1 << 20

// WebhookPayload is the body Storyblok posts for story events.
type WebhookPayload struct {
	Text     string `json:"text"`
	Action   string `json:"action" binding:"required"`
	SpaceID  int64  `json:"space_id"`
	StoryID  int64  `json:"story_id"`
	FullSlug string `json:"full_slug"`
}

// StoryblokHandlers serve integration metadata, webhooks and the bridge relay
type StoryblokHandlers struct {
	pipeline      *pipeline.Pipeline
	hub           *bridge.Hub
	webhookSecret string
	logger        *logging.ChanneledLogger
}

// NewStoryblokHandlers creates Storyblok handlers with injected dependencies
func NewStoryblokHandlers(p *pipeline.Pipeline, hub *bridge.Hub, webhookSecret string, logger *logging.ChanneledLogger) *StoryblokHandlers {
	return &StoryblokHandlers{pipeline: p, hub: hub, webhookSecret: webhookSecret, logger: logger}
}

// GetScripts returns the scripts injected by the active build
func (h *StoryblokHandlers) GetScripts(c *gin.Context) {
	scripts := h.pipeline.Scripts()
	if scripts == nil {
		scripts = []domain.InjectedScript{}
	}
	c.JSON(http.StatusOK, gin.H{
		"buildId": h.pipeline.BuildID(),
		"scripts": scripts,
	})
}

// PostWebhook turns a Storyblok webhook into a bridge event
func (h *StoryblokHandlers) PostWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if h.webhookSecret != "" && !validWebhookSignature(h.webhookSecret, body, c.GetHeader(WebhookSignatureHeader)) {
		h.logger.Bridge().Warn("Rejected webhook with invalid signature", "remoteAddr", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload WebhookPayload
	if err := binding.JSON.BindBody(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev := bridge.Event{Action: payload.Action, StoryID: payload.StoryID, Slug: payload.FullSlug}
	h.hub.Publish(ev)

	h.logger.Bridge().Info("Webhook relayed",
		slog.String("action", ev.Action),
		slog.Int64("storyId", ev.StoryID),
		slog.Int("clients", h.hub.ClientCount()),
	)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// ServeBridge upgrades to the live-preview websocket relay
func (h *StoryblokHandlers) ServeBridge(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		h.logger.Bridge().Debug("Bridge connection ended", "error", err.Error())
	}
}

func validWebhookSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
