package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/middleware"
	"github.com/lalith-99/unionline/internal/service"
)

// DirectoryHandler serves the reference data: companies, pôles with their
// members, and delegate mandates.
type DirectoryHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewDirectoryHandler(svc *service.Service, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{svc: svc, logger: logger}
}

// ListCompanies handles GET /v1/companies (public)
func (h *DirectoryHandler) ListCompanies(c *gin.Context) {
	companies, err := h.svc.ListCompanies(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "failed to list companies", err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

// GetCompany handles GET /v1/companies/:id (public)
func (h *DirectoryHandler) GetCompany(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	company, err := h.svc.GetCompany(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "failed to get company", err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// CreateCompany handles POST /v1/companies
func (h *DirectoryHandler) CreateCompany(c *gin.Context) {
	var req service.CompanyInput
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.svc.CreateCompany(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		writeError(c, h.logger, "failed to create company", err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// UpdateCompany handles PUT /v1/companies/:id
func (h *DirectoryHandler) UpdateCompany(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.CompanyInput
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.svc.UpdateCompany(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to update company", err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// ListPoles handles GET /v1/poles
func (h *DirectoryHandler) ListPoles(c *gin.Context) {
	poles, err := h.svc.ListPoles(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, "failed to list poles", err)
		return
	}
	c.JSON(http.StatusOK, poles)
}

// GetPole handles GET /v1/poles/:id
func (h *DirectoryHandler) GetPole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pole, err := h.svc.GetPole(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to get pole", err)
		return
	}
	c.JSON(http.StatusOK, pole)
}

// CreatePole handles POST /v1/poles
func (h *DirectoryHandler) CreatePole(c *gin.Context) {
	var req service.PoleInput
	if !bindJSON(c, &req) {
		return
	}
	pole, err := h.svc.CreatePole(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		writeError(c, h.logger, "failed to create pole", err)
		return
	}
	c.JSON(http.StatusCreated, pole)
}

// ListMembers handles GET /v1/poles/:id/members
func (h *DirectoryHandler) ListMembers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	members, err := h.svc.ListPoleMembers(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		writeError(c, h.logger, "failed to list members", err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// AddMember handles POST /v1/poles/:id/members
func (h *DirectoryHandler) AddMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.MemberInput
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.AddPoleMember(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to add member", err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// UpdateMember handles PATCH /v1/poles/:id/members/:user_id
func (h *DirectoryHandler) UpdateMember(c *gin.Context) {
	poleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	var req service.MemberPatch
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.UpdatePoleMember(c.Request.Context(), middleware.GetPrincipal(c), poleID, userID, req)
	if err != nil {
		writeError(c, h.logger, "failed to update member", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ListDelegates handles GET /v1/delegates
func (h *DirectoryHandler) ListDelegates(c *gin.Context) {
	delegates, err := h.svc.ListDelegates(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, "failed to list delegates", err)
		return
	}
	c.JSON(http.StatusOK, delegates)
}

// CreateDelegate handles POST /v1/delegates
func (h *DirectoryHandler) CreateDelegate(c *gin.Context) {
	var req service.DelegateInput
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.CreateDelegate(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		writeError(c, h.logger, "failed to create delegate", err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// UpdateDelegate handles PATCH /v1/delegates/:id
func (h *DirectoryHandler) UpdateDelegate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.DelegatePatch
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.UpdateDelegate(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to update delegate", err)
		return
	}
	c.JSON(http.StatusOK, m)
}
