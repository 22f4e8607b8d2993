package container

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"librarium/internal/config"
	catalogHandler "librarium/internal/domains/catalog/handler"
	catalogRepo "librarium/internal/domains/catalog/repository"
	catalogService "librarium/internal/domains/catalog/service"
	infraCache "librarium/internal/infrastructure/cache"
	"librarium/internal/infrastructure/database"
	"librarium/pkg/cache"
	"librarium/pkg/jwt"
)

// Container holds the application's dependency graph. Everything in it is a
// singleton built once at startup, in dependency order: config, then
// infrastructure, then repositories, services, and handlers.
type Container struct {
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	JWTManager *jwt.Manager

	CatalogRepo catalogRepo.Repository

	ImpactAnalyzer   *catalogService.ImpactAnalyzer
	LifecycleService *catalogService.LifecycleService
	ImportService    *catalogService.ImportService

	CatalogHandler *catalogHandler.Handler
}

// NewContainer builds and wires the whole graph.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Info().Str("environment", cfg.App.Environment).Msg("config loaded")

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	c.DB = db
	log.Info().Msg("database connected")

	// Redis is an optimization, not a dependency; fall back to the noop
	// cache when it is unreachable.
	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if rc, ok := redisCache.(*infraCache.RedisCache); ok {
		if err := rc.Connect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, caching disabled")
			redisCache = cache.NewNoop()
		} else {
			log.Info().Msg("redis connected")
		}
	}
	c.Cache = redisCache

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	c.CatalogRepo = catalogRepo.NewPostgresRepository(db.Pool, c.Cache)

	c.ImpactAnalyzer = catalogService.NewImpactAnalyzer(c.CatalogRepo)
	c.LifecycleService = catalogService.NewLifecycleService(c.CatalogRepo)
	c.ImportService = catalogService.NewImportService(c.CatalogRepo)

	c.CatalogHandler = catalogHandler.NewHandler(
		c.LifecycleService,
		c.ImpactAnalyzer,
		c.ImportService,
		c.CatalogRepo,
	)

	log.Info().Msg("container initialized")
	return c, nil
}

// Cleanup releases held resources during graceful shutdown.
func (c *Container) Cleanup() {
	if c.DB != nil {
		c.DB.Close()
		log.Info().Msg("database connections closed")
	}

	if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
		if err := rc.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		} else {
			log.Info().Msg("redis connections closed")
		}
	}
}
