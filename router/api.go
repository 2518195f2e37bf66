package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/authgate/authz"
	"github.com/fieldserve/authgate/credstore"
	"github.com/fieldserve/authgate/handlers"
	"github.com/fieldserve/authgate/internal/config"
	"github.com/fieldserve/authgate/services"
)

// New wires the shared session manager, services, and handlers into the
// gateway's router.
func New(sessions *credstore.Sessions, backend *services.BackendClient) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize services
	authService := services.NewAuthService(backend)
	refresher := services.NewRefresher(backend)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, refresher, sessions)
	dashboardHandler := handlers.NewDashboardHandler(sessions)
	profileHandler := handlers.NewProfileHandler(sessions)

	guard := handlers.NewGuard(sessions)
	guard.Refresher = refresher
	guard.DenyByDefault = config.App.GuardDenyByDefault

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Success"})
	})

	// Auth surface
	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", guard.Require(handlers.GuardSpec{}), authHandler.Me)
	}

	// Landing pages the guard redirects to
	r.GET(services.RouteLogin, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Success", "data": gin.H{"page": "login"}})
	})
	r.GET(services.RouteUnauthorized, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Error", "message": "You do not have access to this page"})
	})

	// Dashboards
	r.GET(services.RouteSuperAdminDashboard,
		guard.Require(handlers.GuardSpec{Roles: []string{authz.RoleSuperAdmin}}),
		dashboardHandler.SuperAdminDashboard)
	r.GET(services.RouteAdminDashboard,
		guard.Require(handlers.GuardSpec{Roles: []string{authz.RoleAdmin}}),
		dashboardHandler.AdminDashboard)
	r.GET(services.RouteDashboard,
		guard.Require(handlers.GuardSpec{Permissions: []string{authz.PermViewDashboard}}),
		dashboardHandler.Dashboard)

	// Guarded navigation targets
	r.GET("/clients",
		guard.Require(handlers.GuardSpec{Permissions: []string{authz.PermViewClients}}),
		dashboardHandler.Dashboard)
	r.GET("/locations",
		guard.Require(handlers.GuardSpec{Permissions: []string{authz.PermViewLocations}}),
		dashboardHandler.Dashboard)
	r.GET("/materials",
		guard.Require(handlers.GuardSpec{Permissions: []string{authz.PermViewMaterials}}),
		dashboardHandler.Dashboard)
	r.GET("/terms",
		guard.Require(handlers.GuardSpec{Permissions: []string{authz.PermViewTermsAndConditions}}),
		dashboardHandler.Dashboard)

	// Profile
	r.PUT("/profile/name", guard.Require(handlers.GuardSpec{}), profileHandler.UpdateName)

	return r
}
