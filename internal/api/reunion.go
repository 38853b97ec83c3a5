package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/middleware"
	"github.com/lalith-99/unionline/internal/service"
)

// ReunionHandler serves réunions, attachments and notifications: the
// records that hang off a dossier or requête and are read on their own.
type ReunionHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewReunionHandler(svc *service.Service, logger *zap.Logger) *ReunionHandler {
	return &ReunionHandler{svc: svc, logger: logger}
}

// List handles GET /v1/reunions
func (h *ReunionHandler) List(c *gin.Context) {
	items, err := h.svc.ListReunions(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, "failed to list reunions", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET /v1/reunions/:id
func (h *ReunionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.svc.GetReunion(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to get reunion", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Update handles PATCH /v1/reunions/:id
func (h *ReunionHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ReunionPatch
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.UpdateReunion(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to update reunion", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListAttachments handles GET /v1/pieces-jointes
func (h *ReunionHandler) ListAttachments(c *gin.Context) {
	items, err := h.svc.ListAttachments(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, "failed to list attachments", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetAttachment handles GET /v1/pieces-jointes/:id
func (h *ReunionHandler) GetAttachment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pj, err := h.svc.GetAttachment(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to get attachment", err)
		return
	}
	c.JSON(http.StatusOK, pj)
}

// ListNotifications handles GET /v1/notifications
func (h *ReunionHandler) ListNotifications(c *gin.Context) {
	items, err := h.svc.ListNotifications(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, "failed to list notifications", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// MarkRead handles POST /v1/notifications/:id/mark-read
func (h *ReunionHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.MarkNotificationRead(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to mark notification", err)
		return
	}
	c.JSON(http.StatusOK, n)
}
