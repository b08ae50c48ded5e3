// Package app wires repositories, use cases, the undo machinery and the HTTP
// router from configuration. The serve, sweep and migrate commands share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fekuna/omnipos-qrmenu/config"
	"github.com/fekuna/omnipos-qrmenu/internal/cache"
	catH "github.com/fekuna/omnipos-qrmenu/internal/category/handler"
	catRepoPkg "github.com/fekuna/omnipos-qrmenu/internal/category/repository"
	catUCPkg "github.com/fekuna/omnipos-qrmenu/internal/category/usecase"
	"github.com/fekuna/omnipos-qrmenu/internal/database"
	"github.com/fekuna/omnipos-qrmenu/internal/events"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	menuH "github.com/fekuna/omnipos-qrmenu/internal/menu/handler"
	menuUCPkg "github.com/fekuna/omnipos-qrmenu/internal/menu/usecase"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	prodH "github.com/fekuna/omnipos-qrmenu/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-qrmenu/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-qrmenu/internal/product/usecase"
	"github.com/fekuna/omnipos-qrmenu/internal/server"
	tableH "github.com/fekuna/omnipos-qrmenu/internal/table/handler"
	tableRepoPkg "github.com/fekuna/omnipos-qrmenu/internal/table/repository"
	tableUCPkg "github.com/fekuna/omnipos-qrmenu/internal/table/usecase"
	"github.com/fekuna/omnipos-qrmenu/internal/undo"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type App struct {
	DB       *sqlx.DB
	Redis    *cache.RedisClient
	Registry *undo.Registry
	Sweeper  *undo.Sweeper
	Handler  http.Handler

	closers []func() error
	logger  logger.ZapLogger
}

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

type options struct {
	db    *sqlx.DB
	redis *cache.RedisClient
	clock undo.Clock
}

// WithDB uses an already open and migrated database; the App does not close it.
func WithDB(db *sqlx.DB) Option {
	return func(o *options) { o.db = db }
}

// WithRedis uses an existing client instead of dialing cfg.Redis.
func WithRedis(c *cache.RedisClient) Option {
	return func(o *options) { o.redis = c }
}

func WithClock(c undo.Clock) Option {
	return func(o *options) { o.clock = c }
}

func New(ctx context.Context, cfg *config.Config, log logger.ZapLogger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{logger: log}

	if err := a.openDatabase(ctx, cfg, o.db); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openRedis(cfg, o.redis); err != nil {
		a.Close()
		return nil, err
	}

	// Events
	var invalidator events.Publisher
	if a.Redis != nil {
		invalidator = menuUCPkg.NewCacheInvalidator(a.Redis)
	}
	var kafkaPub events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(&events.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}, log)
		a.closers = append(a.closers, kp.Close)
		kafkaPub = kp
		log.Info("Publishing events to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	pub := events.Fanout(invalidator, kafkaPub)

	// Repositories
	catRepo := catRepoPkg.NewSQLRepository(a.DB)
	prodRepo := prodRepoPkg.NewSQLRepository(a.DB)
	tableRepo := tableRepoPkg.NewSQLRepository(a.DB)

	// UseCases
	catUC := catUCPkg.NewCategoryUseCase(catRepo, prodRepo, pub, log)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, catRepo, pub, log)
	tableUC := tableUCPkg.NewTableUseCase(tableRepo, pub, log)
	menuUC := menuUCPkg.NewMenuUseCase(catRepo, prodRepo, tableUC, a.Redis, cfg.Menu.CacheTTL, log)

	// Undo
	resolvers := map[ordering.Kind]undo.Resolver{
		ordering.KindCategory: catUC.Ordering(),
		ordering.KindProduct:  prodUC.Ordering(),
	}
	var store undo.PendingStore = undo.NewMemoryStore()
	if a.Redis != nil {
		store = undo.NewRedisStore(a.Redis.Client)
	}
	a.Registry = undo.NewRegistry(undo.RegistryConfig{
		Window: cfg.Undo.Window,
		Clock:  o.clock,
		Store:  store,
		Logger: log,
	}, resolvers)
	a.Sweeper = undo.NewSweeper(undo.SweeperConfig{
		Interval:       cfg.Undo.SweepInterval,
		Grace:          cfg.Undo.SweepGrace,
		SessionIdleTTL: cfg.Undo.SessionIdleTTL,
		Clock:          o.clock,
		Lock:           a.Redis,
	}, store, resolvers, a.Registry, log)

	// Handlers
	checks := map[string]server.Pinger{"database": a.DB}
	if a.Redis != nil {
		checks["redis"] = a.Redis
	}
	a.Handler = server.NewRouter(server.Deps{
		Categories:     catH.NewCategoryHandler(catUC, a.Registry, log),
		Products:       prodH.NewProductHandler(prodUC, a.Registry, log),
		Tables:         tableH.NewTableHandler(tableUC, log),
		Menu:           menuH.NewMenuHandler(menuUC, log),
		Health:         server.NewHealthHandler(checks, log),
		Undo:           a.Registry,
		Logger:         log,
		APIKeys:        cfg.Auth.APIKeys,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	return a, nil
}

func (a *App) openDatabase(ctx context.Context, cfg *config.Config, db *sqlx.DB) error {
	if db != nil {
		a.DB = db
		return nil
	}

	dbCfg := DatabaseConfig(cfg)
	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	a.logger.Info("Connected to database", zap.String("driver", dbCfg.Driver))

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db)
		if err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		if len(applied) > 0 {
			a.logger.Info("Applied migrations", zap.Strings("versions", applied))
		}
	}
	return nil
}

func (a *App) openRedis(cfg *config.Config, client *cache.RedisClient) error {
	if client != nil {
		a.Redis = client
		return nil
	}
	if cfg.Redis.Addr == "" {
		a.logger.Info("Redis not configured, keeping undo batches in memory")
		return nil
	}

	client, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	a.Redis = client
	a.closers = append(a.closers, client.Close)
	a.logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	return nil
}

// Close stops the undo timers and releases what New opened, in reverse order.
// Pending batches stay recorded for the next sweep.
func (a *App) Close() error {
	if a.Registry != nil {
		a.Registry.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// DatabaseConfig maps the env configuration onto the driver configuration.
func DatabaseConfig(cfg *config.Config) *database.Config {
	return &database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		Path:            cfg.Database.SQLitePath,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second,
	}
}
