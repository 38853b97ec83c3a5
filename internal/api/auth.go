package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/auth"
	"github.com/lalith-99/unionline/internal/middleware"
	"github.com/lalith-99/unionline/internal/service"
)

// AuthHandler serves registration and the token lifecycle. Register, Login
// and Refresh are public; Logout needs a valid access token.
type AuthHandler struct {
	svc     *service.Service
	issuer  *auth.Issuer
	revoked auth.RevocationList
	logger  *zap.Logger
}

func NewAuthHandler(svc *service.Service, issuer *auth.Issuer, revoked auth.RevocationList, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, issuer: issuer, revoked: revoked, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type registerResponse struct {
	*service.Account
	Tokens auth.Pair `json:"tokens"`
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	acc, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, "registration failed", err)
		return
	}
	pair, err := h.issuer.IssuePair(acc.User.ID, acc.User.Email)
	if err != nil {
		h.logger.Error("failed to issue tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, registerResponse{Account: acc, Tokens: pair})
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		// Same answer for unknown email and wrong password.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err != nil {
		writeError(c, h.logger, "login failed", err)
		return
	}
	pair, err := h.issuer.IssuePair(user.ID, user.Email)
	if err != nil {
		h.logger.Error("failed to issue tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh handles POST /v1/auth/refresh. The presented refresh token is
// revoked and a new pair is returned, so each refresh token works once.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	claims, err := h.issuer.ParseToken(req.Refresh, auth.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	revoked, err := h.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		h.logger.Error("failed to check token revocation", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
		return
	}
	if revoked {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	if err := h.revoked.Revoke(ctx, claims.ID, h.issuer.Remaining(claims)); err != nil {
		h.logger.Error("failed to revoke refresh token", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
		return
	}
	pair, err := h.issuer.IssuePair(claims.UserID, claims.Email)
	if err != nil {
		h.logger.Error("failed to issue tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout handles POST /v1/auth/logout. It revokes the access token of the
// request and, when given, the refresh token of the same user.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	ctx := c.Request.Context()

	if access := middleware.GetClaims(c); access != nil {
		if err := h.revoked.Revoke(ctx, access.ID, h.issuer.Remaining(access)); err != nil {
			h.logger.Error("failed to revoke access token", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			return
		}
	}
	if req.Refresh != "" {
		refresh, err := h.issuer.ParseToken(req.Refresh, auth.RefreshToken)
		if err == nil && refresh.UserID == middleware.GetUserID(c) {
			if err := h.revoked.Revoke(ctx, refresh.ID, h.issuer.Remaining(refresh)); err != nil {
				h.logger.Error("failed to revoke refresh token", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
				return
			}
		}
	}
	c.Status(http.StatusNoContent)
}
