// Package container wires the engine together with samber/do. Each
// concern gets its own provider package function; entrypoints compose
// the packages they need.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkpulse/linkpulse/internal/analytics"
	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/linkpulse/linkpulse/internal/handlers"
	"github.com/linkpulse/linkpulse/internal/health"
	"github.com/linkpulse/linkpulse/internal/identity"
	"github.com/linkpulse/linkpulse/internal/maintenance"
	"github.com/linkpulse/linkpulse/internal/messaging"
	"github.com/linkpulse/linkpulse/internal/middleware"
	"github.com/linkpulse/linkpulse/internal/ratelimit"
	"github.com/linkpulse/linkpulse/internal/rollup"
	"github.com/linkpulse/linkpulse/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
)

// Options configures both entrypoints.
type Options struct {
	Port          int    `default:"8888"                                      help:"Port to listen on"                        short:"p"`
	PostgresDSN   string `default:"postgres://localhost:5432/linkpulse"       help:"PostgreSQL connection string"`
	RedisAddr     string `default:"localhost:6379"                            help:"Redis server address"                     short:"r"`
	LogFormat     string `default:"console"                                   help:"Log format (console or json)"`
	HashSalt      string `default:""                                          help:"Secret salt for visitor hashing"`
	Timezone      string `default:"UTC"                                       help:"Timezone for day/week/month boundaries"`
	ResyncMinutes int    `default:"0"                                         help:"Full resync interval in minutes (0 disables)"`
	CacheTTLSecs  int    `default:"30"                                        help:"Aggregate cache TTL in seconds"`
}

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// ClockPackage provides the boundary clock.
func ClockPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (clicks.Clock, error) {
		options := do.MustInvoke[*Options](i)

		loc, err := time.LoadLocation(options.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", options.Timezone, err)
		}

		return clicks.SystemClock{Loc: loc}, nil
	})
}

// RedisPackage provides the redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{Addr: options.RedisAddr}), nil
	})
}

// PostgresPackage provides the pgx pool and applies the schema.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		options := do.MustInvoke[*Options](i)

		pool, err := pgxpool.New(context.Background(), options.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := store.EnsureSchema(context.Background(), pool); err != nil {
			pool.Close()

			return nil, err
		}

		return pool, nil
	})
}

// StorePackage provides the event store, the cached aggregate store and
// the link resolver.
func StorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (clicks.EventStore, error) {
		return store.NewPostgresEventStore(do.MustInvoke[*pgxpool.Pool](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (clicks.AggregateStore, error) {
		options := do.MustInvoke[*Options](i)
		pg := store.NewPostgresAggregateStore(do.MustInvoke[*pgxpool.Pool](i))
		ttl := time.Duration(options.CacheTTLSecs) * time.Second

		return store.NewRedisCacheAggregateStore(pg, do.MustInvoke[*redis.Client](i), ttl), nil
	})

	do.Provide(injector, func(i *do.Injector) (clicks.LinkResolver, error) {
		return store.NewPostgresLinkResolver(do.MustInvoke[*pgxpool.Pool](i)), nil
	})
}

// RollupPackage provides the rollup engine.
func RollupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*rollup.Engine, error) {
		return rollup.NewEngine(
			do.MustInvoke[clicks.EventStore](i),
			do.MustInvoke[clicks.AggregateStore](i),
			do.MustInvoke[clicks.LinkResolver](i),
			do.MustInvoke[clicks.Clock](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// PublisherGroupPackage provides the redis-stream publisher and the
// typed click.recorded publish function.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		publisher, err := messaging.NewRedisPublisher(
			do.MustInvoke[*redis.Client](i),
			do.MustInvoke[*zap.Logger](i),
		)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[clicks.RecordedEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[clicks.RecordedEvent](group.Publisher(), clicks.TopicClickRecorded), nil
	})
}

// EnginePackage provides the identity hasher and the ingest engine.
func EnginePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*identity.Hasher, error) {
		options := do.MustInvoke[*Options](i)

		return identity.NewHasher(options.HashSalt, identity.DefaultSessionWindow), nil
	})

	do.Provide(injector, func(i *do.Injector) (*clicks.Engine, error) {
		return clicks.NewEngine(
			do.MustInvoke[clicks.LinkResolver](i),
			do.MustInvoke[clicks.EventStore](i),
			do.MustInvoke[*identity.Hasher](i),
			do.MustInvoke[*rollup.Engine](i),
			do.MustInvoke[messaging.Publish[clicks.RecordedEvent]](i),
			clicks.DefaultWindows(),
			do.MustInvoke[clicks.Clock](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// RateLimitPackage provides the redis-backed request limiter.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.Limiter, error) {
		limitStore := store.NewRateLimitRedisStore(do.MustInvoke[*redis.Client](i))

		defaults := []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 300},
			{Window: time.Hour, Max: 5000},
		}

		return ratelimit.NewLimiter(limitStore, defaults), nil
	})
}

// HTTPPackage provides the router and the huma API with all routes and
// middlewares registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)

		api := humachi.New(router, huma.DefaultConfig("LinkPulse Click Engine", "1.0.0"))

		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.RateLimiter(api, do.MustInvoke[*ratelimit.Limiter](i), logger))

		events := do.MustInvoke[clicks.EventStore](i)
		resolver := do.MustInvoke[clicks.LinkResolver](i)
		aggregates := do.MustInvoke[clicks.AggregateStore](i)
		clock := do.MustInvoke[clicks.Clock](i)

		clickHandler := handlers.NewClickHandler(do.MustInvoke[*clicks.Engine](i), logger)
		analyticsHandler := handlers.NewAnalyticsHandler(
			analytics.NewService(events, resolver, clock), aggregates)
		syncHandler := handlers.NewSyncHandler(do.MustInvoke[*rollup.Engine](i), resolver, events, logger)

		handlers.RegisterRoutes(api, clickHandler, analyticsHandler, syncHandler)

		healthHandler := health.NewHandler(
			health.NewPostgresChecker(do.MustInvoke[*pgxpool.Pool](i)),
			health.NewRedisChecker(do.MustInvoke[*redis.Client](i)),
		)
		health.RegisterRoutes(api, healthHandler)

		return api, nil
	})
}

// ConsumerGroupPackage provides the worker consumer group: the rollup
// consumer plus the maintenance scheduler.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := messaging.NewRedisSubscriber(
			do.MustInvoke[*redis.Client](i), "rollup-workers", logger)
		if err != nil {
			return nil, err
		}

		engine := do.MustInvoke[*rollup.Engine](i)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(rollup.NewConsumer(subscriber, engine, logger))
		group.Add(maintenance.NewScheduler(
			engine,
			do.MustInvoke[clicks.Clock](i),
			time.Duration(options.ResyncMinutes)*time.Minute,
			logger,
		))

		return group, nil
	})
}
