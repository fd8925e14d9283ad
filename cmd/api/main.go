package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/hr-attendance-api/api/swagger"
	"github.com/noah-isme/hr-attendance-api/internal/handler"
	"github.com/noah-isme/hr-attendance-api/internal/middleware"
	"github.com/noah-isme/hr-attendance-api/internal/repository"
	"github.com/noah-isme/hr-attendance-api/internal/routes"
	"github.com/noah-isme/hr-attendance-api/internal/service"
	"github.com/noah-isme/hr-attendance-api/pkg/cache"
	"github.com/noah-isme/hr-attendance-api/pkg/config"
	"github.com/noah-isme/hr-attendance-api/pkg/database"
	"github.com/noah-isme/hr-attendance-api/pkg/jobs"
	"github.com/noah-isme/hr-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hr-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hr-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/hr-attendance-api/pkg/observability"
)

// @title HR Attendance API
// @version 1.0.0
// @description Device-bound authentication and session bootstrap for the employee attendance app
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
		if cfg.Auth.TokenSecret == "dev_secret" {
			logr.Fatal("AUTH_TOKEN_SECRET must be set in production")
		}
	}

	sentryEnabled, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env)
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	if sentryEnabled {
		defer observability.FlushSentry()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authDB, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect auth database", zap.Error(err))
	}
	defer authDB.Close()

	legacyDB, err := database.NewPostgres(ctx, cfg.LegacyDatabase)
	if err != nil {
		logr.Fatal("failed to connect legacy database", zap.Error(err))
	}
	defer legacyDB.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(authDB)
	accessRepo := repository.NewAccessTokenRepository(authDB)
	refreshRepo := repository.NewRefreshTokenRepository(authDB)
	auditRepo := repository.NewAuditRepository(authDB)
	employeeRepo := repository.NewEmployeeRepository(legacyDB)
	newsRepo := repository.NewNewsRepository(legacyDB)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	var auditQueue *jobs.Queue
	var auditSvc *service.AuditService
	if cfg.Audit.Persist {
		auditQueue = jobs.NewQueue("audit", service.PersistAuditJob(auditRepo), jobs.QueueConfig{
			Workers:    cfg.Audit.Workers,
			BufferSize: cfg.Audit.BufferSize,
			MaxRetries: cfg.Audit.MaxRetries,
			RetryDelay: cfg.Audit.RetryDelay,
			Logger:     logr,
		})
		auditQueue.Start(context.Background())
		auditSvc = service.NewAuditService(logr, metrics, auditQueue)
	} else {
		auditSvc = service.NewAuditService(logr, metrics, nil)
	}

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.ProfileTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	sessionData := service.NewSessionDataService(employeeRepo, newsRepo, cacheSvc, service.SessionDataConfig{
		ProfileTTL: cfg.Cache.ProfileTTL,
		NewsTTL:    cfg.Cache.NewsTTL,
	}, logr)

	tokenIssuer := service.NewTokenIssuer(accessRepo, service.TokenIssuerConfig{
		Secret: cfg.Auth.TokenSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.AccessTokenTTL,
	})

	authSvc := service.NewAuthService(service.AuthDeps{
		Users:         userRepo,
		Credentials:   service.NewCredentialVerifier(userRepo),
		Tokens:        tokenIssuer,
		AccessTokens:  accessRepo,
		RefreshTokens: refreshRepo,
		Limiter:       service.NewRateLimiter(counterStore(cfg, redisClient, logr)),
		SessionData:   sessionData,
		Audit:         auditSvc,
	}, service.NewValidator(), logr, service.AuthConfig{
		RefreshTokenTTL:     cfg.Auth.RefreshTokenTTL,
		MaxRefreshPerDevice: cfg.Auth.MaxRefreshPerDevice,
		LoginMaxAttempts:    cfg.Auth.LoginMaxAttempts,
		RefreshMaxAttempts:  cfg.Auth.RefreshMaxAttempts,
		AttemptDecay:        cfg.Auth.AttemptDecay,
	})

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	service.NewTokenCleanup(accessRepo, refreshRepo, cfg.Auth.CleanupInterval, metrics, logr).Start(cleanupCtx)

	dependencies := map[string]handler.Pinger{
		"auth_db":   authDB,
		"legacy_db": legacyDB,
	}
	if redisClient != nil {
		dependencies["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	r := gin.New()
	r.Use(reqidmiddleware.Middleware())
	r.Use(observability.Middleware(logr))
	r.Use(logger.GinMiddleware(logr, cfg.Auth.DeviceHeader))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, cfg.Auth.DeviceHeader))

	routes.Register(r, cfg.APIPrefix, routes.Handlers{
		Auth:          handler.NewAuthHandler(authSvc, cfg.Auth.DeviceHeader),
		Metrics:       handler.NewMetricsHandler(metrics, dependencies, logr),
		Authenticator: authSvc,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}

	cleanupCancel()
	if auditQueue != nil {
		auditQueue.Stop()
	}
	logr.Info("server stopped")
}

// counterStore picks the attempt counter backend. Redis is shared across instances; the memory
// store only limits within one process.
func counterStore(cfg *config.Config, client *redis.Client, logr *zap.Logger) service.CounterStore {
	if cfg.Auth.LimiterStore == config.LimiterStoreMemory {
		return repository.NewMemoryCounterStore()
	}
	if client == nil {
		logr.Warn("redis disabled, falling back to in-memory attempt counters")
		return repository.NewMemoryCounterStore()
	}
	return repository.NewRedisCounterStore(client, "throttle:")
}
