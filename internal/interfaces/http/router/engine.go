package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	identityapp "github.com/resepku/backend/internal/application/identity"
	recipeapp "github.com/resepku/backend/internal/application/recipe"
	"github.com/resepku/backend/internal/infrastructure/auth"
	"github.com/resepku/backend/internal/infrastructure/config"
	"github.com/resepku/backend/internal/infrastructure/logger"
	"github.com/resepku/backend/internal/infrastructure/telemetry"
	"github.com/resepku/backend/internal/interfaces/http/handler"
	"github.com/resepku/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Version   string
	JWT       *auth.JWTService
	Blacklist auth.TokenBlacklist
	Sessions  *identityapp.SessionService
	Recipes   *recipeapp.Service
	// DB backs the health check; nil reports healthy unconditionally
	DB handler.Pinger
	// Metrics and Gatherer are both nil when metrics are disabled
	Metrics  *telemetry.Metrics
	Gatherer prometheus.Gatherer
}

// NewEngine builds the gin engine with every route mounted
func NewEngine(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	// Request id first so that every later middleware can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	if deps.Metrics != nil {
		engine.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     deps.JWT,
		TokenBlacklist: deps.Blacklist,
		Logger:         log,
	}
	requireAuth := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)
	optionalAuth := middleware.OptionalJWTAuthMiddleware(jwtConfig)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, deps.Version, deps.DB)
	engine.GET("/health", systemHandler.Health)

	if deps.Gatherer != nil && cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(telemetry.Handler(deps.Gatherer)))
	}

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, requireAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := NewRouter(engine, WithAPIVersion("v1"))
	for _, g := range APIGroups(
		handler.NewAuthHandler(deps.Sessions),
		handler.NewRecipeHandler(deps.Recipes),
		systemHandler,
		requireAuth,
		optionalAuth,
	) {
		r.Register(g)
	}
	r.Setup()

	return engine, nil
}

// APIGroups lays out the /api/v1 routes. Reads are public, with the caller
// resolved when a token is present. Writes need a valid access token.
func APIGroups(
	authHandler *handler.AuthHandler,
	recipeHandler *handler.RecipeHandler,
	systemHandler *handler.SystemHandler,
	requireAuth, optionalAuth gin.HandlerFunc,
) []*DomainGroup {
	tagCaller := middleware.TracingAttributeInjector()

	system := NewDomainGroup("system", "/system").
		GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping)

	authPublic := NewDomainGroup("auth", "/auth").
		POST("/register", authHandler.Register).
		POST("/login", authHandler.Login).
		POST("/refresh", authHandler.RefreshToken)

	authSession := NewDomainGroup("auth-session", "/auth").
		Use(optionalAuth, tagCaller).
		GET("/me", authHandler.GetCurrentUser)

	authProtected := NewDomainGroup("auth-protected", "/auth").
		Use(requireAuth, tagCaller).
		POST("/logout", authHandler.Logout)

	recipesPublic := NewDomainGroup("recipes", "/recipes").
		Use(optionalAuth, tagCaller).
		GET("", recipeHandler.List).
		GET("/search", recipeHandler.Search).
		GET("/form", recipeHandler.Form).
		GET("/:id", recipeHandler.Get)

	recipesProtected := NewDomainGroup("recipes-protected", "/recipes").
		Use(requireAuth, tagCaller).
		POST("", recipeHandler.Create).
		POST("/images", recipeHandler.UploadImage).
		GET("/:id/form", recipeHandler.EditForm).
		PATCH("/:id", recipeHandler.Update).
		DELETE("/:id", recipeHandler.Delete)

	me := NewDomainGroup("me", "/me").
		Use(requireAuth, tagCaller)
	me.Group("my-recipes", "/recipes").
		GET("", recipeHandler.MyRecipes).
		GET("/stats", recipeHandler.Stats)

	return []*DomainGroup{system, authPublic, authSession, authProtected, recipesPublic, recipesProtected, me}
}
