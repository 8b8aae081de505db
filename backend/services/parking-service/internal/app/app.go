package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "parkingledger/backend/libs/redis"
	"parkingledger/backend/services/parking-service/internal/clock"
	"parkingledger/backend/services/parking-service/internal/config"
	httpserver "parkingledger/backend/services/parking-service/internal/http"
	"parkingledger/backend/services/parking-service/internal/http/handlers"
	"parkingledger/backend/services/parking-service/internal/metrics"
	redisstore "parkingledger/backend/services/parking-service/internal/redis"
	"parkingledger/backend/services/parking-service/internal/repository/sqlstore"
	"parkingledger/backend/services/parking-service/internal/service"
)

// App wires parking-service dependencies.
type App struct {
	server      *httpserver.Server
	store       *sqlstore.Store
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("ledger storage ready", zap.String("driver", store.Driver()))

	deps := service.Dependencies{
		Store:           store,
		Clock:           clock.Real{},
		Metrics:         metrics.New(),
		Logger:          logger,
		Location:        cfg.Location(),
		DefaultRate:     cfg.HourlyRate(),
		DefaultCapacity: cfg.Facility.DefaultCapacity,
		DayClose:        service.PurgeToday{},
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("redis unavailable, entry lock disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			deps.Locker = redisstore.NewEntryLocker(redisClient, cfg.Redis.EntryLockTTL, cfg.Redis.EntryLockWait)
		}
	}

	parking := service.NewParkingService(deps)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Sessions: handlers.NewSessionsHandlers(parking, logger),
		Reports:  handlers.NewReportsHandlers(parking, logger),
		Vehicles: handlers.NewVehiclesHandlers(parking, logger),
		Health:   handlers.NewHealthHandler(parking),
		Metrics:  deps.Metrics.Handler(),
		Logger:   logger,
	})
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		store:       store,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*sqlstore.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return sqlstore.OpenPostgres(ctx, cfg.Database.DSN, sqlstore.WithLocation(cfg.Location()))
	case config.DriverSQLite:
		return sqlstore.OpenSQLite(ctx, cfg.Database.DSN, sqlstore.WithLocation(cfg.Location()))
	default:
		return nil, fmt.Errorf("app: unsupported database driver %q", cfg.Database.Driver)
	}
}

// Handler exposes the HTTP handler tree.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
