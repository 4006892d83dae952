// Package api exposes the notification registry endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/notification"
)

type Handlers struct {
	service *notification.Service
	logger  *logger.Logger
}

func NewHandlers(svc *notification.Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: svc,
		logger:  log.WithFields(zap.String("component", "notification-handlers")),
	}
}

func RegisterRoutes(router *gin.Engine, svc *notification.Service, log *logger.Logger) {
	h := NewHandlers(svc, log)
	api := router.Group("/api/v1")
	api.GET("/notifications", h.httpList)
	api.GET("/notifications/:name", h.httpGetByName)
	api.POST("/notifications/email", h.httpSaveEmail)
	api.POST("/notifications/webhook", h.httpSaveWebhook)
	api.DELETE("/notifications/:name", h.httpDelete)
}

func (h *Handlers) httpList(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) httpGetByName(c *gin.Context) {
	n, err := h.service.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(errors.GetHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, n)
}

type saveEmailRequest struct {
	Name        string `json:"name" binding:"required"`
	Trigger     string `json:"trigger" binding:"required"`
	Condition   string `json:"condition"`
	SmtpConfig  string `json:"smtp_config" binding:"required"`
	From        string `json:"from"`
	To          string `json:"to"`
	ToFlowUsers bool   `json:"to_flow_users"`
	Subject     string `json:"subject" binding:"required"`
}

func (h *Handlers) httpSaveEmail(c *gin.Context) {
	var body saveEmailRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	n := &notification.Notification{
		Name:        body.Name,
		Trigger:     notification.TriggerAction(body.Trigger),
		Condition:   body.Condition,
		SmtpConfig:  body.SmtpConfig,
		From:        body.From,
		To:          body.To,
		ToFlowUsers: body.ToFlowUsers,
		Subject:     body.Subject,
	}
	if err := h.service.SaveEmail(c.Request.Context(), n); err != nil {
		c.JSON(errors.GetHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, n)
}

type saveWebhookRequest struct {
	Name      string `json:"name" binding:"required"`
	Trigger   string `json:"trigger" binding:"required"`
	Condition string `json:"condition"`
	URL       string `json:"url" binding:"required"`
}

func (h *Handlers) httpSaveWebhook(c *gin.Context) {
	var body saveWebhookRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	n := &notification.Notification{
		Name:      body.Name,
		Trigger:   notification.TriggerAction(body.Trigger),
		Condition: body.Condition,
		URL:       body.URL,
	}
	if err := h.service.SaveWebhook(c.Request.Context(), n); err != nil {
		c.JSON(errors.GetHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handlers) httpDelete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("name")); err != nil {
		h.logger.Error("failed to delete notification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete notification"})
		return
	}
	c.Status(http.StatusNoContent)
}
