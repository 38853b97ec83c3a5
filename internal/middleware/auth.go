package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/auth"
	"github.com/lalith-99/unionline/internal/identity"
)

// Context keys for values stored in gin.Context.
const (
	ContextKeyUserID    = "user_id"
	ContextKeyPrincipal = "principal"
	ContextKeyClaims    = "claims"
)

// PrincipalLoader is satisfied by repository.PrincipalRepository.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID int64) (*identity.Principal, error)
}

// AuthMiddleware validates the bearer access token, rejects revoked
// tokens, and loads the caller's principal from the store. The principal
// is loaded on every request so role and membership changes apply
// immediately.
func AuthMiddleware(issuer *auth.Issuer, revoked auth.RevocationList, principals PrincipalLoader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Expected format: "Bearer eyJhbGciOi..."
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := issuer.ParseToken(parts[1], auth.AccessToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		ctx := c.Request.Context()
		isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			logger.Error("failed to check token revocation", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			return
		}
		if isRevoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}

		p, err := principals.LoadPrincipal(ctx, claims.UserID)
		if err != nil {
			logger.Error("failed to load principal", zap.Int64("user_id", claims.UserID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if p == nil || !p.User.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account disabled or removed"})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyPrincipal, p)
		c.Next()
	}
}

// GetPrincipal returns the caller, or nil outside AuthMiddleware, which
// every service treats as anonymous.
func GetPrincipal(c *gin.Context) *identity.Principal {
	val, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return nil
	}
	p, ok := val.(*identity.Principal)
	if !ok {
		return nil
	}
	return p
}

func GetUserID(c *gin.Context) int64 {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0
	}
	id, ok := val.(int64)
	if !ok {
		return 0
	}
	return id
}

func GetClaims(c *gin.Context) *auth.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}
