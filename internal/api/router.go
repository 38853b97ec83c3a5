package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/auth"
	"github.com/lalith-99/unionline/internal/middleware"
	"github.com/lalith-99/unionline/internal/observ"
	"github.com/lalith-99/unionline/internal/service"
)

// HealthChecker reports whether the backing store answers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type RouterDeps struct {
	Service    *service.Service
	Principals middleware.PrincipalLoader
	Issuer     *auth.Issuer
	Revoked    auth.RevocationList
	Metrics    *observ.Metrics
	Health     HealthChecker
	Logger     *zap.Logger
}

// NewRouter wires every handler. Everything under /v1 except auth, the
// company directory and the health check requires a valid access token.
func NewRouter(d RouterDeps) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(apperr.JSONName)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(d.Logger, d.Metrics))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))

	authH := NewAuthHandler(d.Service, d.Issuer, d.Revoked, d.Logger)
	users := NewUserHandler(d.Service, d.Logger)
	dir := NewDirectoryHandler(d.Service, d.Logger)
	requetes := NewRequeteHandler(d.Service, d.Logger)
	dossiers := NewDossierHandler(d.Service, d.Logger)
	reunions := NewReunionHandler(d.Service, d.Logger)
	documents := NewDocumentHandler(d.Service, d.Logger)

	// Public.
	public := r.Group("/v1")
	public.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health.Health(c.Request.Context()); err != nil {
				d.Logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	public.POST("/auth/register", authH.Register)
	public.POST("/auth/login", authH.Login)
	public.POST("/auth/refresh", authH.Refresh)
	public.GET("/companies", dir.ListCompanies)
	public.GET("/companies/:id", dir.GetCompany)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(d.Issuer, d.Revoked, d.Principals, d.Logger))

	v1.POST("/auth/logout", authH.Logout)

	v1.GET("/profiles", users.List)
	v1.GET("/profiles/me", users.GetMe)
	v1.PATCH("/profiles/me", users.UpdateMe)
	v1.POST("/profiles/create-user", users.CreateUser)
	v1.PATCH("/profiles/:id", users.Update)

	v1.POST("/companies", dir.CreateCompany)
	v1.PUT("/companies/:id", dir.UpdateCompany)

	v1.GET("/poles", dir.ListPoles)
	v1.POST("/poles", dir.CreatePole)
	v1.GET("/poles/:id", dir.GetPole)
	v1.GET("/poles/:id/members", dir.ListMembers)
	v1.POST("/poles/:id/members", dir.AddMember)
	v1.PATCH("/poles/:id/members/:user_id", dir.UpdateMember)

	v1.GET("/delegates", dir.ListDelegates)
	v1.POST("/delegates", dir.CreateDelegate)
	v1.PATCH("/delegates/:id", dir.UpdateDelegate)

	v1.GET("/requetes", requetes.List)
	v1.POST("/requetes", requetes.Create)
	v1.GET("/requetes/:id", requetes.Get)
	v1.PATCH("/requetes/:id", requetes.Update)
	v1.POST("/requetes/:id/change-status", requetes.ChangeStatus)
	v1.GET("/requetes/:id/pieces-jointes", requetes.ListAttachments)
	v1.POST("/requetes/:id/pieces-jointes", requetes.AddAttachment)
	v1.POST("/requetes/:id/comments", requetes.AddComment)
	v1.GET("/requetes/:id/history", requetes.History)

	v1.GET("/dossiers", dossiers.List)
	v1.POST("/dossiers", dossiers.Create)
	v1.GET("/dossiers/:id", dossiers.Get)
	v1.PATCH("/dossiers/:id", dossiers.Update)
	v1.POST("/dossiers/:id/change-status", dossiers.ChangeStatus)
	v1.POST("/dossiers/:id/transmit", dossiers.Transmit)
	v1.POST("/dossiers/:id/reunions", dossiers.ScheduleReunion)
	v1.POST("/dossiers/:id/synthesis", dossiers.Synthesis)
	v1.GET("/dossiers/:id/history", dossiers.History)

	v1.GET("/reunions", reunions.List)
	v1.GET("/reunions/:id", reunions.Get)
	v1.PATCH("/reunions/:id", reunions.Update)

	v1.GET("/pieces-jointes", reunions.ListAttachments)
	v1.GET("/pieces-jointes/:id", reunions.GetAttachment)

	v1.GET("/documents", documents.List)
	v1.POST("/documents", documents.Create)
	v1.GET("/documents/:id", documents.Get)
	v1.PATCH("/documents/:id", documents.Update)

	v1.GET("/notifications", reunions.ListNotifications)
	v1.POST("/notifications/:id/mark-read", reunions.MarkRead)

	return r
}
