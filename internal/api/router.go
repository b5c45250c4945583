package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/bigsauer/rp-exotics-platform/internal/app"
	iauth "github.com/bigsauer/rp-exotics-platform/internal/auth"
	"github.com/bigsauer/rp-exotics-platform/internal/auth/providers"
	"github.com/bigsauer/rp-exotics-platform/internal/handlers"
	"github.com/bigsauer/rp-exotics-platform/internal/middleware"
	"github.com/bigsauer/rp-exotics-platform/internal/permissions"
	"github.com/bigsauer/rp-exotics-platform/internal/services"
	"github.com/bigsauer/rp-exotics-platform/internal/vindecode"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Health endpoint (public)
	healthHandler := handlers.Health(db)
	r.GET("/health", healthHandler)
	r.GET("/api/health", healthHandler)

	// Services
	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	userSvc, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	dealerSvc, err := services.NewDealerService(db)
	if err != nil {
		return nil, err
	}
	dealSvc, err := services.NewDealService(db, dealerSvc, services.DealServiceConfig{
		EnforceStageOrder: cfg.Workflow.EnforceStageOrder,
	})
	if err != nil {
		return nil, err
	}
	backofficeSvc, err := services.NewBackOfficeService(db, cfg.Storage.UploadsDir, nil)
	if err != nil {
		return nil, err
	}
	localProvider, err := providers.NewLocalProvider(db, cfg.Auth.LocalProviderConfig())
	if err != nil {
		return nil, err
	}
	vinClient := vindecode.NewClient(vindecode.Config{
		BaseURL: cfg.VIN.BaseURL,
		Timeout: cfg.VIN.Timeout,
	})

	// Handlers
	authHandler := handlers.NewAuthHandler(db, jwt, localProvider, userSvc, auditSvc)
	userHandler := handlers.NewUserHandler(userSvc, auditSvc)
	dealerHandler := handlers.NewDealerHandler(dealerSvc)
	dealHandler := handlers.NewDealHandler(dealSvc, auditSvc)
	backofficeHandler := handlers.NewBackOfficeHandler(backofficeSvc, auditSvc)
	vinHandler := handlers.NewVINHandler(vinClient)

	// Public auth routes, throttled harder than the rest of the API.
	auth := r.Group("/api/auth")
	auth.Use(middleware.RateLimit(20, time.Minute))
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
	}

	// Protected routes
	requireAuth := middleware.Auth(jwt, db)

	api := r.Group("/api")
	api.Use(requireAuth)

	// Authenticated auth routes
	api.GET("/auth/check-session", authHandler.CheckSession)
	api.GET("/auth/profile", authHandler.Profile)
	api.PUT("/auth/profile", authHandler.UpdateProfile)
	api.PUT("/auth/change-password", authHandler.ChangePassword)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/users/me", authHandler.Profile)

	// Deals
	deals := api.Group("/deals")
	{
		deals.GET("", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionRead), dealHandler.List)
		deals.GET("/search", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionRead), dealHandler.Search)
		deals.GET("/stock/:stockNumber", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionRead), dealHandler.GetByStockNumber)
		deals.GET("/:id", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionRead), dealHandler.Get)
		deals.POST("", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionCreate), dealHandler.Create)
		deals.PUT("/:id", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionUpdate), dealHandler.Update)
		deals.DELETE("/:id", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionDelete), dealHandler.Delete)
		deals.POST("/:id/transition", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionUpdate), dealHandler.Transition)
		deals.PUT("/:id/stage", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionUpdate), dealHandler.UpdateStage)
		deals.POST("/:id/assign", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionUpdate), dealHandler.Assign)
		deals.PUT("/:id/title", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionUpdate), dealHandler.UpdateTitle)
		deals.PUT("/:id/compliance", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionUpdate), dealHandler.UpdateCompliance)
		deals.POST("/:id/documents/:type/upload", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionUpdate), backofficeHandler.Upload)
		deals.PUT("/:id/documents/:type/approval", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionUpdate), backofficeHandler.Approval)
	}

	// Dealers
	dealers := api.Group("/dealers")
	{
		dealers.GET("/search", middleware.RequirePermission(permissions.ResourceDealers, permissions.ActionRead), dealerHandler.Search)
		dealers.GET("", middleware.RequirePermission(permissions.ResourceDealers, permissions.ActionRead), dealerHandler.List)
		dealers.GET("/:id", middleware.RequirePermission(permissions.ResourceDealers, permissions.ActionRead), dealerHandler.Get)
		dealers.POST("", middleware.RequirePermission(permissions.ResourceDealers, permissions.ActionCreate), dealerHandler.Create)
		dealers.PUT("/:id", middleware.RequirePermission(permissions.ResourceDealers, permissions.ActionUpdate), dealerHandler.Update)
		dealers.DELETE("/:id", middleware.RequirePermission(permissions.ResourceDealers, permissions.ActionDelete), dealerHandler.Delete)
	}

	// Back office
	backoffice := api.Group("/backoffice")
	backoffice.Use(middleware.RequirePermission(permissions.ResourceBackOffice, permissions.ActionAccess))
	{
		backoffice.GET("/dashboard", backofficeHandler.Dashboard)
		backoffice.GET("/deals", backofficeHandler.Deals)
		backoffice.GET("/deals/:id/progress", backofficeHandler.Progress)
		backoffice.POST("/deals/:id/documents/:type", backofficeHandler.Upload)
		backoffice.POST("/deals/:id/documents/:type/approve", backofficeHandler.Approve)
		backoffice.POST("/deals/:id/documents/:type/reject", backofficeHandler.Reject)
		backoffice.GET("/deals/:id/documents/:type/download", backofficeHandler.Download)
		backoffice.DELETE("/deals/:id/documents/:type", backofficeHandler.DeleteDocument)
	}

	// Users (admin)
	users := api.Group("/users")
	users.Use(middleware.RequirePermission(permissions.ResourceUsers, permissions.ActionManage))
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.PUT("/:id/role", userHandler.ChangeRole)
		users.PUT("/:id/active", userHandler.SetActive)
		users.DELETE("/:id", userHandler.Delete)
	}

	// VIN decode gateway
	api.GET("/vin/:vin", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionRead), vinHandler.Decode)
	api.POST("/vin/decode", middleware.RequirePermission(permissions.ResourceDeals, permissions.ActionRead), vinHandler.DecodeBody)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
