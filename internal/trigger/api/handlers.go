// Package api exposes the webhook ingestion endpoints.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/trigger"
	"github.com/hookline/hookline/internal/trigger/converter"
	"github.com/hookline/hookline/internal/trigger/service"
)

type Handlers struct {
	service *service.Service
	logger  *logger.Logger
}

func NewHandlers(svc *service.Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: svc,
		logger:  log.WithFields(zap.String("component", "webhook-handlers")),
	}
}

func RegisterRoutes(router *gin.Engine, svc *service.Service, log *logger.Logger) {
	h := NewHandlers(svc, log)
	api := router.Group("/api/v1")
	api.POST("/webhooks/:trigger", h.httpReceiveWebhook)
	api.GET("/webhooks/:trigger/deliveries", h.httpListDeliveries)
}

// httpReceiveWebhook accepts a raw provider payload. The provider is
// discriminated by header: GitHub names the event in X-GitHub-Event, Gerrit
// marks the origin in X-Origin-Url and carries the event type in the body.
func (h *Handlers) httpReceiveWebhook(c *gin.Context) {
	triggerID := c.Param("trigger")

	source, eventName, ok := discriminate(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to identify webhook provider"})
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read payload"})
		return
	}

	outcome, err := h.service.Ingest(c.Request.Context(), triggerID, source, eventName, payload)
	if err != nil {
		if errors.IsValidation(err) {
			c.JSON(errors.GetHTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to ingest webhook",
			zap.String("trigger_id", triggerID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record delivery"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": outcome.String()})
}

func (h *Handlers) httpListDeliveries(c *gin.Context) {
	triggerID := c.Param("trigger")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	items, total, err := h.service.ListDeliveries(c.Request.Context(), triggerID, page, size)
	if err != nil {
		h.logger.Error("failed to list deliveries",
			zap.String("trigger_id", triggerID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deliveries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func discriminate(c *gin.Context) (trigger.GitSource, string, bool) {
	if event := c.GetHeader(converter.GitHubHeader); event != "" {
		return trigger.SourceGitHub, event, true
	}
	if origin := c.GetHeader(converter.GerritHeader); origin != "" {
		return trigger.SourceGerrit, converter.GerritAllEvents, true
	}
	return "", "", false
}
