package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/middleware"
	"github.com/lalith-99/unionline/internal/service"
)

// UserHandler serves accounts and profiles.
type UserHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewUserHandler(svc *service.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// GetMe handles GET /v1/profiles/me
//
// The profile is created with the member role if the user has none yet.
func (h *UserHandler) GetMe(c *gin.Context) {
	acc, err := h.svc.GetMyProfile(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, "failed to get profile", err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// UpdateMe handles PATCH /v1/profiles/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req service.ProfilePatch
	if !bindJSON(c, &req) {
		return
	}
	acc, err := h.svc.UpdateMyProfile(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		writeError(c, h.logger, "failed to update profile", err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// List handles GET /v1/profiles
func (h *UserHandler) List(c *gin.Context) {
	profiles, err := h.svc.ListProfiles(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		writeError(c, h.logger, "failed to list profiles", err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

// CreateUser handles POST /v1/profiles/create-user (admin only)
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserInput
	if !bindJSON(c, &req) {
		return
	}
	acc, err := h.svc.CreateUser(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		writeError(c, h.logger, "failed to create user", err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

// Update handles PATCH /v1/profiles/:id (admin only). The id is the
// account's user id.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AdminProfilePatch
	if !bindJSON(c, &req) {
		return
	}
	acc, err := h.svc.UpdateProfile(c.Request.Context(), middleware.GetPrincipal(c), id, req)
	if err != nil {
		writeError(c, h.logger, "failed to update profile", err)
		return
	}
	c.JSON(http.StatusOK, acc)
}
