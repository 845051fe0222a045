package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"control-acceso/internal/api/handlers"
	"control-acceso/internal/api/middleware"
	"control-acceso/internal/auth"
	"control-acceso/internal/config"
	"control-acceso/internal/dashboard"
	"control-acceso/internal/models"
	"control-acceso/internal/panels"
	"control-acceso/internal/services"
	"control-acceso/internal/session"
	"control-acceso/web"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires every page of the front-end onto r and returns the
// session store so the caller can sweep it.
func SetupRoutes(r *gin.Engine, cfg *config.Config, logger *slog.Logger) (*session.Store, error) {
	// Only the configured proxies may set X-Forwarded-For; with none, the
	// client IP is the peer address.
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	tmpl, err := web.Templates(loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	// Initialize services
	backend, err := services.NewBackendClient(cfg)
	if err != nil {
		return nil, err
	}
	authService := services.NewAuthService(cfg, backend)
	store, err := session.NewStore(models.DB, cfg)
	if err != nil {
		return nil, err
	}
	audit := services.NewAuditService(models.DB)
	rolePanels, err := panels.Build(cfg, backend, audit, logger)
	if err != nil {
		return nil, err
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg, logger)
	tracker := dashboard.NewTracker()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "control-acceso web is running",
		})
	})

	// Middleware
	site := r.Group("")
	site.Use(middleware.CSRF(cfg, logger))
	site.Use(middleware.Session(store))

	// Public routes
	limited := middleware.RateLimit(cfg)
	{
		site.GET("/", authHandler.ShowLogin)
		site.POST("/", limited, authHandler.Login)
		site.GET("/register", authHandler.ShowRegister)
		site.POST("/register", limited, authHandler.Register)
		site.POST("/logout", authHandler.Logout)
	}

	// Role dashboards, one role each
	for _, role := range auth.Roles() {
		dashboardHandler := handlers.NewDashboardHandler(rolePanels[role], tracker, logger)

		group := site.Group(role.Path())
		group.Use(middleware.RequireRole(role))
		{
			group.GET("", dashboardHandler.Show)
			group.POST("/:resource", dashboardHandler.Create)
			group.POST("/:resource/:key", dashboardHandler.Update)
			group.POST("/:resource/:key/delete", dashboardHandler.Delete)
		}
	}

	r.NoRoute(middleware.Session(store), handlers.NotFound)

	return store, nil
}
