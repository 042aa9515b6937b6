package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"bikeman/internal/availability"
	"bikeman/internal/broker"
	"bikeman/internal/config"
	"bikeman/internal/constants"
	"bikeman/internal/dispatcher"
	"bikeman/internal/gateway"
	"bikeman/internal/logger"
	"bikeman/internal/processor"
	"bikeman/internal/subscription"
	"bikeman/internal/trust"
	"bikeman/pkg/bootstrap"
	"bikeman/pkg/circuitbreaker"
	"bikeman/pkg/health"
	"bikeman/pkg/metrics"
	"bikeman/pkg/middleware"
	"bikeman/pkg/migrations"
	"bikeman/pkg/ratelimit"
	"bikeman/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	config         *config.Config
	logger         logger.Logger
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redisClient    *redis.Client
	mongoClient    *mongo.Client
	memoryStore    *subscription.MemoryStore
	subscriptions  *subscription.Service
	dispatcher     *dispatcher.Dispatcher
	health         *health.CheckerRegistry
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		health:      health.NewCheckerRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterDispatchMetrics()
	metrics.RegisterSubscriptionMetrics()
	metrics.RegisterAvailabilityMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterGatewayMetrics()

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	source, err := a.initAvailability(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize availability source: %w", err)
	}

	a.subscriptions = subscription.NewService(a.initSubscriptionStore(), source, a.logger)

	deps := processor.Deps{
		Source:        source,
		Subscriptions: a.subscriptions,
		ProviderID:    a.config.IXSI.ProviderID,
	}
	if a.db != nil {
		deps.Users = trust.NewPostgresUserDirectory(a.db)
	}
	registry := processor.NewDefaultRegistry(deps)
	if err := registry.Validate(); err != nil {
		return fmt.Errorf("invalid processor registry: %w", err)
	}

	a.dispatcher = dispatcher.New(
		registry,
		trust.NewSystemValidator(a.systemDirectory(), a.logger),
		trust.NewAuthenticator(a.userDirectory()),
		dispatcher.OptionsFromConfig(a.config.Dispatch),
		a.logger,
	)

	if a.config.Broker.Type == config.BrokerTypeKafka {
		metrics.RegisterBrokerMetrics()
		a.health.RegisterOptional(health.Kafka(a.config.Broker.Kafka.Brokers))
	}
	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.initServer(ctx)

	a.logger.InfowCtx(ctx, "IXSI service initialized",
		"processors", len(registry.Tags()),
		"broker", a.config.Broker.Type,
		"subscription_store", a.config.Subscription.Store,
		"availability_source", a.config.Availability.Source,
	)
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if db != nil {
		a.db = db
		a.health.Register(health.Postgres(db))
	}

	if a.config.Subscription.Store == config.SubscriptionStoreRedis {
		client, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return err
		}
		a.redisClient = client
		a.health.Register(health.Redis(client))
	}

	if a.config.Availability.Source == config.AvailabilitySourceMongoDB {
		client, err := a.dbConnector.InitMongoDB(ctx)
		if err != nil {
			return err
		}
		a.mongoClient = client
		a.health.Register(health.MongoDB(client))
	}

	return nil
}

func (a *App) initAvailability(ctx context.Context) (availability.Source, error) {
	var source availability.Source

	switch a.config.Availability.Source {
	case config.AvailabilitySourcePostgres:
		source = availability.NewPostgresSource(a.db)
	case config.AvailabilitySourceMongoDB:
		mongoDB := a.mongoClient.Database(a.config.Database.MongoDB.Database)
		if err := migrations.EnsureAvailabilityCollection(ctx, mongoDB, a.config.Availability.Collection); err != nil {
			return nil, err
		}
		source = availability.NewMongoSource(mongoDB, a.config.Availability.Collection)
	case config.AvailabilitySourceMemory:
		a.logger.WarnwCtx(ctx, "Using in-memory availability source, booking targets are not persisted")
		source = availability.NewMemorySource()
	default:
		return nil, fmt.Errorf("unknown availability source: %s", a.config.Availability.Source)
	}

	var cb *circuitbreaker.Wrapper
	if cbConfig := circuitbreaker.FromConfig("availability-"+a.config.Availability.Source, a.config.CircuitBreaker); cbConfig != nil {
		cb = circuitbreaker.NewWrapper(*cbConfig)
	}
	return availability.NewGuardedSource(source, a.config.Availability.Source, a.config.Availability.Timeout, cb), nil
}

func (a *App) initSubscriptionStore() subscription.Store {
	if a.config.Subscription.Store == config.SubscriptionStoreRedis {
		store := subscription.NewRedisStore(a.redisClient, a.config.Subscription.KeyPrefix)
		return subscription.NewCircuitBreakerStore(store, a.config.CircuitBreaker)
	}

	a.memoryStore = subscription.NewMemoryStore()
	return a.memoryStore
}

func (a *App) systemDirectory() trust.SystemDirectory {
	if a.config.Trust.SystemSource == config.SystemSourcePostgres {
		return trust.NewPostgresSystemDirectory(a.db)
	}
	return trust.NewStaticSystemDirectory(a.config.Trust.Systems)
}

func (a *App) userDirectory() trust.UserDirectory {
	if a.db == nil {
		a.logger.Warn("No user store configured, only anonymous user requests are accepted")
		return trust.ClosedUserDirectory{}
	}
	return trust.NewPostgresUserDirectory(a.db)
}

func (a *App) initServer(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.Gateway.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromConfig(a.config.Gateway.RateLimit)
		router.Use(ratelimit.Middleware(ctx, rateLimitConfig))
		a.logger.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	gateway.NewHandler(a.dispatcher, a.subscriptions, a.config.Gateway.OpsToken, a.logger).RegisterRoutes(router)
	if a.config.Gateway.OpsToken == "" {
		a.logger.InfowCtx(ctx, "Operator routes disabled, gateway.ops_token is not set")
	}

	router.GET("/health", a.health.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(gctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.Consumer != nil {
		kafkaCfg := a.config.Broker.Kafka
		handler := broker.NewEnvelopeHandler(a.dispatcher, a.Producer, kafkaCfg.OutputTopic, a.logger)
		g.Go(func() error {
			err := a.Consumer.Consume(gctx, kafkaCfg.InputTopic, handler)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if a.memoryStore != nil {
		a.memoryStore.StartSweeper(gctx, a.config.Subscription.SweepInterval, a.logger)
	} else {
		g.Go(func() error {
			a.reportSubscriptions(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(ctx)
	})

	return g.Wait()
}

// reportSubscriptions keeps the active subscriptions gauge current for stores that expire
// entries on their own.
func (a *App) reportSubscriptions(ctx context.Context) {
	ticker := time.NewTicker(constants.DefaultSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.subscriptions.Count(ctx); err != nil && ctx.Err() == nil {
				a.logger.WarnwCtx(ctx, "Failed to count subscriptions", "error", err)
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	return a.Base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, a.mongoClient)...)
	})
}
