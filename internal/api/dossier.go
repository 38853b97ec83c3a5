package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/middleware"
	"github.com/lalith-99/unionline/internal/service"
)

type DossierHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewDossierHandler(svc *service.Service, logger *zap.Logger) *DossierHandler {
	return &DossierHandler{svc: svc, logger: logger}
}

// Create handles POST /v1/dossiers
func (h *DossierHandler) Create(c *gin.Context) {
	var req service.CreateDossierInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.svc.CreateDossier(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		writeError(c, h.logger, "failed to create dossier", err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// List handles GET /v1/dossiers
func (h *DossierHandler) List(c *gin.Context) {
	items, err := h.svc.ListDossiers(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, "failed to list dossiers", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET /v1/dossiers/:id. The response carries the linked
// requêtes and may_close.
func (h *DossierHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.GetDossier(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to get dossier", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Update handles PATCH /v1/dossiers/:id
func (h *DossierHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.DossierPatch
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.svc.UpdateDossier(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to update dossier", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ChangeStatus handles POST /v1/dossiers/:id/change-status
func (h *DossierHandler) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.svc.ChangeDossierStatus(c.Request.Context(), middleware.GetPrincipal(c), id, req.Status, req.Comment)
	if err != nil {
		writeError(c, h.logger, "failed to change status", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Transmit handles POST /v1/dossiers/:id/transmit
func (h *DossierHandler) Transmit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.TransmitDossier(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to transmit dossier", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ScheduleReunion handles POST /v1/dossiers/:id/reunions
func (h *DossierHandler) ScheduleReunion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ReunionInput
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.ScheduleReunion(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to schedule reunion", err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// Synthesis handles POST /v1/dossiers/:id/synthesis
func (h *DossierHandler) Synthesis(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.GenerateSynthesis(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to generate synthesis", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// History handles GET /v1/dossiers/:id/history
func (h *DossierHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.svc.DossierHistory(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to load history", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
