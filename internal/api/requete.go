package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/middleware"
	"github.com/lalith-99/unionline/internal/service"
)

type RequeteHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewRequeteHandler(svc *service.Service, logger *zap.Logger) *RequeteHandler {
	return &RequeteHandler{svc: svc, logger: logger}
}

type statusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

type commentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// Create handles POST /v1/requetes
func (h *RequeteHandler) Create(c *gin.Context) {
	var req service.CreateRequeteInput
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.CreateRequete(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		writeError(c, h.logger, "failed to create requete", err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// List handles GET /v1/requetes. Only requêtes visible to the caller are
// returned.
func (h *RequeteHandler) List(c *gin.Context) {
	items, err := h.svc.ListRequetes(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, "failed to list requetes", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET /v1/requetes/:id
func (h *RequeteHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.svc.GetRequete(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to get requete", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Update handles PATCH /v1/requetes/:id
func (h *RequeteHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.RequetePatch
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.UpdateRequete(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to update requete", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ChangeStatus handles POST /v1/requetes/:id/change-status
func (h *RequeteHandler) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.ChangeRequeteStatus(c.Request.Context(), middleware.GetPrincipal(c), id, req.Status, req.Comment)
	if err != nil {
		writeError(c, h.logger, "failed to change status", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// AddAttachment handles POST /v1/requetes/:id/pieces-jointes
func (h *RequeteHandler) AddAttachment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AttachmentInput
	if !bindJSON(c, &req) {
		return
	}
	pj, err := h.svc.AddAttachment(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to add attachment", err)
		return
	}
	c.JSON(http.StatusCreated, pj)
}

// ListAttachments handles GET /v1/requetes/:id/pieces-jointes
func (h *RequeteHandler) ListAttachments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListRequeteAttachments(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to list attachments", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// AddComment handles POST /v1/requetes/:id/comments
func (h *RequeteHandler) AddComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.svc.AddComment(c.Request.Context(), middleware.GetPrincipal(c), id, req.Comment)
	if err != nil {
		writeError(c, h.logger, "failed to add comment", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// History handles GET /v1/requetes/:id/history
func (h *RequeteHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.svc.RequeteHistory(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to load history", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
