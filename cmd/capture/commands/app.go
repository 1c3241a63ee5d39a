package commands

import (
	"fmt"

	"github.com/wonny/solarcapture/internal/api"
	"github.com/wonny/solarcapture/internal/recompute"
	"github.com/wonny/solarcapture/internal/store/postgres"
	"github.com/wonny/solarcapture/internal/zones"
	"github.com/wonny/solarcapture/pkg/config"
	"github.com/wonny/solarcapture/pkg/database"
	"github.com/wonny/solarcapture/pkg/logger"
	"github.com/wonny/solarcapture/pkg/redis"
)

// app holds the wired dependencies shared by the commands
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	db           *database.DB
	redis        *redis.Client
	cache        *redis.Cache
	catalog      *zones.Catalog
	observations *postgres.ObservationRepository
	metrics      *postgres.MetricRepository
	controller   *recompute.Controller
}

// newApp connects storage and builds the recompute controller
func newApp(cfg *config.Config) (*app, error) {
	// 1. Initialize logger
	log := logger.New(cfg)

	// 2. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Debug("Connected to database")

	// 3. Zone catalog
	catalog, err := zones.Load(cfg.ZonesFile)
	if err != nil {
		db.Close()
		return nil, err
	}

	// 4. Redis (optional, response cache only)
	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	a := &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        rdb,
		catalog:      catalog,
		observations: postgres.NewObservationRepository(db.Pool),
		metrics:      postgres.NewMetricRepository(db.Pool),
	}

	// 5. Recompute controller
	opts := []recompute.Option{
		recompute.WithRetryable(database.IsTransient),
		recompute.WithReconnect(db.Reconnect),
	}
	if rdb.Enabled() {
		a.cache = rdb.SummaryCache()
		opts = append(opts, recompute.WithAfterRun(api.CacheInvalidator(a.cache, log)))
	}

	a.controller, err = recompute.NewController(a.observations, a.metrics, cfg.Recompute, log, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close releases storage connections
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.db.Close()
}
