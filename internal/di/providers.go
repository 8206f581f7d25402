package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tesloshop/backend/internal/app"
	"github.com/tesloshop/backend/internal/config"
	"github.com/tesloshop/backend/internal/database"
	"github.com/tesloshop/backend/internal/health"
	"github.com/tesloshop/backend/internal/http/handler"
	"github.com/tesloshop/backend/internal/http/middleware"
	"github.com/tesloshop/backend/internal/http/router"
	"github.com/tesloshop/backend/internal/observability"
	"github.com/tesloshop/backend/internal/repository"
	"github.com/tesloshop/backend/internal/security"
	"github.com/tesloshop/backend/internal/service"
)

var ConfigSet = wire.NewSet(provideConfig)

var ObservabilitySet = wire.NewSet(provideObservabilityRuntime, provideLogger)

var RuntimeInfraSet = wire.NewSet(provideDB, provideRedis, provideStorageService, provideReadiness)

var RepositorySet = wire.NewSet(
	repository.NewProductRepository,
	repository.NewUserRepository,
	repository.NewRoleRepository,
	repository.NewSessionRepository,
)

var SecuritySet = wire.NewSet(provideJWTManager)

var ServiceSet = wire.NewSet(
	provideTokenService,
	provideAuthService,
	provideCatalogCache,
	provideProductService,
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	provideProductHandler,
	provideFilesHandler,
	provideRouter,
	provideServer,
)

var AppSet = wire.NewSet(app.New)

func provideConfig() (*config.Config, error) {
	return config.Load()
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrap := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrap)
}

func provideLogger(cfg *config.Config, rt *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, rt.LoggerProvider)
}

func provideDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.Seed(db, cfg.BootstrapAdminEmail); err != nil {
		return nil, err
	}
	logger.Info("database ready")
	return db, nil
}

func provideRedis(cfg *config.Config) redis.UniversalClient {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
}

func provideTokenService(jwtMgr *security.JWTManager, sessions repository.SessionRepository, cfg *config.Config) *service.TokenService {
	return service.NewTokenService(jwtMgr, sessions, cfg.RefreshTokenPepper, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
}

func provideAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	tokenSvc *service.TokenService,
	cfg *config.Config,
	logger *slog.Logger,
) service.AuthServiceInterface {
	return service.NewAuthService(users, roles, tokenSvc, cfg.JWTAccessTTL, cfg.BootstrapAdminEmail, logger)
}

func provideCatalogCache(cfg *config.Config, redisClient redis.UniversalClient) service.CatalogListCacheStore {
	if !cfg.CatalogCacheEnabled || redisClient == nil {
		return service.NewNoopCatalogListCacheStore()
	}
	return service.NewRedisCatalogListCacheStore(redisClient, "catalog_list_cache")
}

func provideProductService(
	products repository.ProductRepository,
	cache service.CatalogListCacheStore,
	cfg *config.Config,
	logger *slog.Logger,
) service.ProductService {
	return service.NewProductService(products, cache, cfg.CatalogCacheTTL, logger)
}

func provideStorageService(cfg *config.Config) (*service.MinIOStorageService, error) {
	return service.NewMinIOStorageService(
		cfg.MinioEndpoint,
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioBucket,
		cfg.MinioUseSSL,
		cfg.UploadMaxBytes,
		cfg.MinioPresignTTL,
	)
}

func provideReadiness(db *gorm.DB, redisClient redis.UniversalClient, storage *service.MinIOStorageService, cfg *config.Config) *health.ProbeRunner {
	return health.NewProbeRunner(2*time.Second, 0,
		health.NewDBChecker(db),
		health.NewRedisChecker(redisClient),
		health.NewStorageChecker(storage.Client(), cfg.MinioBucket),
	)
}

func provideAuthHandler(svc service.AuthServiceInterface) *handler.AuthHandler {
	return handler.NewAuthHandler(svc)
}

func provideProductHandler(svc service.ProductService) *handler.ProductHandler {
	return handler.NewProductHandler(svc)
}

func provideFilesHandler(storage *service.MinIOStorageService, cfg *config.Config) *handler.FilesHandler {
	return handler.NewFilesHandler(storage, cfg.UploadMaxBytes)
}

func provideRouter(
	authHandler *handler.AuthHandler,
	productHandler *handler.ProductHandler,
	filesHandler *handler.FilesHandler,
	jwtMgr *security.JWTManager,
	readiness *health.ProbeRunner,
	redisClient redis.UniversalClient,
	cfg *config.Config,
) http.Handler {
	dep := router.Dependencies{
		AuthHandler:      authHandler,
		ProductHandler:   productHandler,
		FilesHandler:     filesHandler,
		JWTManager:       jwtMgr,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:  cfg.APIRateLimitPerMin,
		BodyLimitBytes:   1 << 20,
		UploadMaxBytes:   cfg.UploadMaxBytes,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.OTELTracingEnabled,
	}
	if redisClient != nil {
		limiter := middleware.NewRedisFixedWindowLimiter(redisClient, "rate_limit")
		dep.APIRateLimiter = middleware.NewDistributedRateLimiter(limiter, cfg.APIRateLimitPerMin, time.Minute, middleware.FailOpen, "api").Middleware()
		dep.AuthRateLimiter = middleware.NewDistributedRateLimiter(limiter, cfg.AuthRateLimitPerMin, time.Minute, middleware.FailClosed, "auth").Middleware()
	}
	return router.NewRouter(dep)
}

func provideServer(h http.Handler, cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
