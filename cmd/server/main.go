package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	identityapp "github.com/resepku/backend/internal/application/identity"
	recipeapp "github.com/resepku/backend/internal/application/recipe"
	"github.com/resepku/backend/internal/infrastructure/auth"
	"github.com/resepku/backend/internal/infrastructure/config"
	"github.com/resepku/backend/internal/infrastructure/logger"
	"github.com/resepku/backend/internal/infrastructure/persistence"
	"github.com/resepku/backend/internal/infrastructure/sanitize"
	"github.com/resepku/backend/internal/infrastructure/storage"
	"github.com/resepku/backend/internal/infrastructure/telemetry"
	"github.com/resepku/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/resepku/backend/docs"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Resepku API
//	@version		1.0
//	@description	Recipe sharing backend: accounts, sessions and owner-guarded recipe management.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLog, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// Tracing and log export come up before the real logger so that the
	// OTLP bridge core can be attached to it
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry, version), bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfigFrom(cfg.Telemetry, version), bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	level, _ := logger.ParseLevel(cfg.Log.Level)
	log, err := logger.New(cfg.Log, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: lp,
		Level:          level,
	}))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting Resepku backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabaseWithLogger(cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log).RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	var (
		metrics  *telemetry.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metrics = telemetry.NewMetrics(reg)
		if sqlDB, err := db.DB.DB(); err == nil {
			telemetry.RegisterRuntimeCollectors(reg, sqlDB)
		} else {
			telemetry.RegisterRuntimeCollectors(reg, nil)
		}
		gatherer = reg
	}

	blacklist, closeBlacklist := newTokenBlacklist(ctx, cfg.Redis, log)
	defer closeBlacklist()

	images, err := storage.NewImageStore(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize image storage", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	sessionOpts := []identityapp.Option{identityapp.WithLogger(log)}
	recipeOpts := []recipeapp.Option{
		recipeapp.WithImageStore(images),
		recipeapp.WithSanitizer(sanitize.NewPlainText()),
		recipeapp.WithLogger(log),
		recipeapp.WithMaxImageSize(cfg.Storage.MaxImageSize),
	}
	if metrics != nil {
		sessionOpts = append(sessionOpts, identityapp.WithRecorder(metrics))
		recipeOpts = append(recipeOpts, recipeapp.WithRecorder(metrics))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.Dependencies{
		Config:    cfg,
		Logger:    log,
		Version:   version,
		JWT:       jwtService,
		Blacklist: blacklist,
		Sessions: identityapp.NewSessionService(
			persistence.NewGormUserRepository(db.DB), jwtService, blacklist, sessionOpts...),
		Recipes:  recipeapp.NewService(persistence.NewGormRecipeRepository(db.DB), recipeOpts...),
		DB:       db,
		Metrics:  metrics,
		Gatherer: gatherer,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited")
}

// newTokenBlacklist uses Redis when enabled so that revocations survive
// restarts and are shared between instances.
func newTokenBlacklist(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (auth.TokenBlacklist, func()) {
	if !cfg.Enabled {
		log.Warn("Redis disabled, revoked tokens are kept in process memory")
		return auth.NewInMemoryTokenBlacklist(), func() {}
	}

	client, err := auth.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	log.Info("Token blacklist backed by redis", zap.String("addr", cfg.Addr()))
	return auth.NewRedisTokenBlacklist(client), func() {
		if err := client.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}
}
