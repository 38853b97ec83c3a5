package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/middleware"
	"github.com/lalith-99/unionline/internal/repository"
	"github.com/lalith-99/unionline/internal/service"
)

// DocumentHandler serves the union's internal documents.
type DocumentHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewDocumentHandler(svc *service.Service, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, logger: logger}
}

// List handles GET /v1/documents?category=&year=
func (h *DocumentHandler) List(c *gin.Context) {
	f := repository.DocumentFilter{Category: c.Query("category")}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		f.Year = year
	}
	docs, err := h.svc.ListDocuments(c.Request.Context(), middleware.GetPrincipal(c), f)
	if err != nil {
		writeError(c, h.logger, "failed to list documents", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Create handles POST /v1/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var req service.DocumentInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.svc.CreateDocument(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		writeError(c, h.logger, "failed to create document", err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Get handles GET /v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.GetDocument(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to get document", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Update handles PATCH /v1/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.DocumentPatch
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.svc.UpdateDocument(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to update document", err)
		return
	}
	c.JSON(http.StatusOK, d)
}
