// Package app wires configuration, storage and services shared by the API server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-room-api/internal/handler"
	"github.com/noah-isme/exam-room-api/internal/repository"
	"github.com/noah-isme/exam-room-api/internal/service"
	"github.com/noah-isme/exam-room-api/pkg/cache"
	"github.com/noah-isme/exam-room-api/pkg/config"
	"github.com/noah-isme/exam-room-api/pkg/database"
	"github.com/noah-isme/exam-room-api/pkg/events"
	"github.com/noah-isme/exam-room-api/pkg/jobs"
	"github.com/noah-isme/exam-room-api/pkg/lock"
)

const (
	eventRetryDelay   = 2 * time.Second
	eventDrainTimeout = 5 * time.Second
)

// Container holds the long-lived dependencies of one process.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Metrics     *service.MetricsService
	Cache       *service.CacheService
	Summaries   *service.SummaryService
	Events      *service.AllocationEventDispatcher
	Allocations *service.AllocationService

	cacheRepo *repository.CacheRepository
}

// New connects to Postgres and, when a component needs it, Redis, then wires every service.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, err
	}

	var client *redis.Client
	if cfg.Summary.CacheEnabled || cfg.Allocation.LockBackend == config.LockBackendRedis {
		client, err = cache.NewRedis(cfg.Redis)
		switch {
		case err != nil && cfg.Allocation.LockBackend == config.LockBackendRedis:
			_ = db.Close()
			return nil, fmt.Errorf("redis lock backend: %w", err)
		case err != nil:
			logger.Warn("redis unavailable, summary cache disabled", zap.Error(err))
			client = nil
		}
	}

	return Wire(cfg, logger, db, client)
}

// Wire assembles services over already opened clients. client may be nil.
func Wire(cfg *config.Config, logger *zap.Logger, db *sqlx.DB, client *redis.Client) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Allocation.LockBackend == config.LockBackendRedis && client == nil {
		return nil, fmt.Errorf("lock backend %q requires a redis client", cfg.Allocation.LockBackend)
	}

	c := &Container{Config: cfg, Logger: logger, DB: db, Redis: client}
	validate := validator.New()

	if cfg.Metrics.Enabled {
		c.Metrics = service.NewMetricsService()
	}

	c.cacheRepo = repository.NewCacheRepository(client, logger)
	c.Cache = service.NewCacheService(c.cacheRepo, c.Metrics, cfg.Summary.CacheTTL, logger, cfg.Summary.CacheEnabled && client != nil)

	allocations := repository.NewAllocationRepository(db)
	c.Summaries = service.NewSummaryService(allocations, c.Cache, cfg.Summary.CacheTTL, validate, logger)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		publisher = events.NewAMQPPublisher(events.AMQPConfig{URL: cfg.Events.AMQPURL, Queue: cfg.Events.Queue, Logger: logger})
	}
	c.Events = service.NewAllocationEventDispatcher(publisher, c.Metrics, logger, jobs.QueueConfig{
		Workers:      cfg.Events.Workers,
		MaxRetries:   cfg.Events.Retries,
		RetryDelay:   eventRetryDelay,
		DrainTimeout: eventDrainTimeout,
	})

	c.Allocations = service.NewAllocationService(
		repository.NewRoomRepository(db),
		repository.NewCourseRepository(db),
		allocations,
		db,
		newLocker(cfg.Allocation, client),
		c.Summaries,
		c.Events,
		c.Metrics,
		validate,
		logger,
		service.AllocationServiceConfig{Strategy: cfg.Allocation.Strategy},
	)

	return c, nil
}

func newLocker(cfg config.AllocationConfig, client *redis.Client) lock.Locker {
	opts := lock.Options{Prefix: cfg.LockPrefix, TTL: cfg.LockTTL, Wait: cfg.LockWait}
	if cfg.LockBackend == config.LockBackendRedis {
		return lock.NewRedis(client, opts)
	}
	return lock.NewLocal(opts)
}

// Start launches background workers. They outlive ctx cancellation and stop in Close, after
// publishing what is still queued.
func (c *Container) Start(ctx context.Context) {
	c.Events.Start(context.WithoutCancel(ctx))
}

// Checks returns the readiness probes for the connected dependencies.
func (c *Container) Checks() map[string]handler.Checker {
	checks := map[string]handler.Checker{}
	if c.DB != nil {
		checks["postgres"] = c.DB.PingContext
	}
	if c.Redis != nil {
		checks["redis"] = c.cacheRepo.Ping
	}
	return checks
}

// Close stops workers and releases connections.
func (c *Container) Close() {
	c.Events.Stop()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("close postgres", zap.Error(err))
		}
	}
}
