package router

import (
	"time"

	"crmdesk/config"
	"crmdesk/internal/backend"
	"crmdesk/internal/domain"
	"crmdesk/internal/handler"
	"crmdesk/internal/middleware"
	"crmdesk/internal/repository"
	"crmdesk/internal/service"
	"crmdesk/internal/session"
	"crmdesk/internal/viewstate"
	"crmdesk/internal/ws"
	"crmdesk/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the long-lived pieces built in main.
type Deps struct {
	DB       *gorm.DB
	Views    viewstate.Store
	Sessions *session.Manager
	Hub      *ws.Hub
	Cloud    cloudinary.Uploader // nil when Cloudinary is not configured
	Checks   map[string]handler.Check
	Log      *zap.Logger
}

func Setup(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestLogger(d.Log))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	limiter.SetGroupLimit("login", 6*time.Second, 5)

	// Repositories
	auditRepo := repository.NewAuditRepository(d.DB)
	sessionRepo := repository.NewSessionRepository(d.DB)

	api := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, d.Log)

	// Services
	auditSvc := service.NewAuditService(auditRepo, d.Log)
	authSvc := service.NewAuthService(api, auditSvc, d.Log)
	leadSvc := service.NewLeadService(api, d.Views, d.Hub, auditSvc, d.Log)
	userSvc := service.NewUserService(api, d.Views, auditSvc, d.Log)
	toggleSvc := service.NewToggleService(api, d.Views, d.Hub, auditSvc, d.Log, cfg.Backend.Timeout+5*time.Second).
		EndSessionsOnDeactivate(sessionRepo)
	profileSvc := service.NewProfileService(api, d.Cloud, auditSvc, d.Log)
	dashSvc := service.NewDashboardService(api)
	incentiveSvc := service.NewIncentiveService(api)
	attendanceSvc := service.NewAttendanceService(api)

	// Handlers
	healthHandler := handler.NewHealthHandler(d.Checks)
	authHandler := handler.NewAuthHandler(authSvc, d.Log)
	meHandler := handler.NewMeHandler()
	leadHandler := handler.NewLeadHandler(leadSvc, d.Log)
	userHandler := handler.NewUserHandler(userSvc, toggleSvc, d.Log)
	profileHandler := handler.NewProfileHandler(profileSvc, d.Log)
	dashHandler := handler.NewDashboardHandler(dashSvc, d.Log)
	incentiveHandler := handler.NewIncentiveHandler(incentiveSvc, d.Log)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, d.Log)
	auditHandler := handler.NewAuditHandler(auditRepo, d.Log)

	r.GET("/health", healthHandler.Health)

	withSession := middleware.LoadSession(d.Sessions)
	r.GET("/login", withSession, authHandler.LoginPage)

	authGroup := r.Group("/api/auth", withSession)
	{
		authGroup.POST("/login", middleware.RateLimit(limiter, "login"), authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/register", middleware.RateLimit(limiter, "login"), authHandler.Register)
	}

	authed := r.Group("/api", withSession, middleware.SessionRequired(d.Sessions), middleware.RateLimit(limiter, "api"))
	{
		authed.GET("/me", meHandler.Me)
		authed.GET("/profile", profileHandler.Get)
		authed.PATCH("/profile", profileHandler.Update)
		authed.GET("/dashboard", dashHandler.KPIs)

		leadsGroup := authed.Group("/leads")
		{
			leadsGroup.GET("", leadHandler.List)
			leadsGroup.GET("/vocabulary", meHandler.Vocabulary)
			leadsGroup.GET("/followups/:bucket", leadHandler.FollowUps)
			leadsGroup.GET("/export.xlsx", leadHandler.Snapshot)
			leadsGroup.POST("/export", leadHandler.Export)
			leadsGroup.POST("/:id/status", leadHandler.UpdateStatus)
			leadsGroup.PATCH("/:id/assign",
				middleware.RequireRole(domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleTeamLeader),
				leadHandler.Assign)
		}

		users := authed.Group("/users/:role", middleware.ManagesRoleParam())
		{
			users.GET("", userHandler.List)
			users.POST("", userHandler.Create)
			users.PATCH("/:id", userHandler.Edit)
			users.POST("/:id/toggle", userHandler.Toggle)
		}

		authed.GET("/incentives/slabs", incentiveHandler.Slabs)
		authed.GET("/incentives/staff/:id", incentiveHandler.Staff)
		authed.GET("/attendance", attendanceHandler.Month)
		authed.GET("/audit", middleware.RequireRole(domain.RoleSuperAdmin, domain.RoleAdmin), auditHandler.List)
	}

	r.GET("/ws/events", ws.ServeEvents(d.Sessions, d.Hub, cfg.Server.AllowedOrigin, d.Log))

	return r
}
