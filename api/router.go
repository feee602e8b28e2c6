package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"lexshare/config"
	"lexshare/db"
	"lexshare/inflight"
	"lexshare/metrics"
	"lexshare/share"
	"lexshare/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Service *share.Service
	Store   db.Store
	Guard   inflight.Guard
	Config  *config.Config
	DocsDir string // directory holding swagger.json; empty disables /docs
}

// NewRouter builds the gin engine with every route of the service.
func NewRouter(d Deps) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery())
	router.Use(utils.RequestLogger())
	router.Use(metrics.Middleware())
	router.Use(cors.New(corsConfig(d.Config.CORSOrigins)))

	svc, store, cfg := d.Service, d.Store, d.Config
	authMiddleware := utils.AuthMiddleware(cfg)
	optionalAuth := utils.OptionalAuthMiddleware(cfg)
	busy := func(action string) gin.HandlerFunc { return inflight.Middleware(d.Guard, action, respondError) }

	// --- Public Routes ---
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", func(c *gin.Context) { SignupHandler(c, store, cfg) })
		authGroup.POST("/login", func(c *gin.Context) { LoginHandler(c, store, cfg) })
		authGroup.POST("/logout", authMiddleware, LogoutHandler)
	}

	router.GET("/profiles/me", authMiddleware, func(c *gin.Context) { GetProfileMeHandler(c, store) })

	// --- Bulletin Board ---
	envGroup := router.Group("/shared-environments")
	{
		envGroup.GET("", optionalAuth, func(c *gin.Context) { ListEnvironmentsHandler(c, svc) })
		envGroup.GET("/my", authMiddleware, func(c *gin.Context) { MyEnvironmentsHandler(c, svc) })
		envGroup.GET("/:id", optionalAuth, func(c *gin.Context) { GetEnvironmentHandler(c, svc) })
		envGroup.GET("/:id/versions", optionalAuth, func(c *gin.Context) { ListVersionsHandler(c, svc) })
		envGroup.POST("/:id/download", optionalAuth, func(c *gin.Context) { DownloadEnvironmentHandler(c, svc) })

		owned := envGroup.Group("", authMiddleware)
		owned.POST("", func(c *gin.Context) { PublishEnvironmentHandler(c, svc) })
		owned.PUT("/:id", func(c *gin.Context) { UpdateEnvironmentHandler(c, svc) })
		owned.DELETE("/:id", func(c *gin.Context) { DeleteEnvironmentHandler(c, svc) })
		owned.POST("/:id/withdraw", busy("withdraw"), func(c *gin.Context) { WithdrawEnvironmentHandler(c, svc) })
		owned.POST("/:id/republish", busy("republish"), func(c *gin.Context) { RepublishEnvironmentHandler(c, svc) })
		owned.POST("/:id/versions/:versionId/restore", func(c *gin.Context) { RestoreVersionHandler(c, svc) })
		owned.POST("/:id/like", busy("like"), func(c *gin.Context) { LikeEnvironmentHandler(c, svc) })
		owned.POST("/:id/report", func(c *gin.Context) { ReportEnvironmentHandler(c, svc) })
		owned.POST("/:id/suggestions", func(c *gin.Context) { CreateSuggestionHandler(c, svc) })
	}

	sugGroup := router.Group("/shared-environments-suggestions", authMiddleware)
	{
		sugGroup.GET("/received", func(c *gin.Context) { ReceivedSuggestionsHandler(c, svc) })
		sugGroup.GET("/sent", func(c *gin.Context) { SentSuggestionsHandler(c, svc) })
		sugGroup.GET("/pending-count", func(c *gin.Context) { PendingCountHandler(c, svc) })
		sugGroup.POST("/:id/approve", busy("review"), func(c *gin.Context) { ApproveSuggestionHandler(c, svc) })
		sugGroup.POST("/:id/reject", busy("review"), func(c *gin.Context) { RejectSuggestionHandler(c, svc) })
	}

	// --- Admin ---
	adminGroup := router.Group("/admin", authMiddleware, utils.AdminMiddleware())
	{
		adminGroup.GET("/shared-environment-reports", func(c *gin.Context) { ListReportsHandler(c, svc) })
		adminGroup.PUT("/shared-environment-reports/:id", func(c *gin.Context) { UpdateReportStatusHandler(c, svc) })
		adminGroup.DELETE("/shared-environments/:id", func(c *gin.Context) { AdminDeleteEnvironmentHandler(c, svc) })
	}

	// --- Operations ---
	router.GET("/metrics", metrics.Handler())
	router.GET("/healthz", func(c *gin.Context) { HealthHandler(c, store) })

	if d.DocsDir != "" {
		router.StaticFS("/docs", http.Dir(d.DocsDir))
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))
	}

	return router
}

// corsConfig allows every origin when origins is empty or contains "*".
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// HealthHandler reports whether the store answers.
func HealthHandler(c *gin.Context, store db.Store) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := store.View(ctx, func(db.Repository) error { return nil }); err != nil {
		utils.GinError(c, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
