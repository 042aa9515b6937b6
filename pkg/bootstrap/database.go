package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bikeman/internal/config"
	"bikeman/internal/logger"
	"bikeman/pkg/migrations"
)

// DatabaseConnector opens the stores named in the database section of the config.
type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{Config: cfg, Logger: log}
}

func postgresDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     cfg.DBName,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// InitPostgreSQL returns nil when no host is configured. Migrations run only when
// database.run_migrations is set.
func (dc *DatabaseConnector) InitPostgreSQL(ctx context.Context) (*sql.DB, error) {
	cfg := dc.Config.Database.Postgres
	if cfg.Host == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres at %s: %w", cfg.Host, err)
	}

	if dc.Config.Database.RunMigrations {
		if err := migrations.RunPostgres(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	dc.Logger.InfowCtx(ctx, "PostgreSQL connected",
		"host", cfg.Host,
		"database", cfg.DBName,
		"migrations", dc.Config.Database.RunMigrations,
	)
	return db, nil
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	cfg := dc.Config.Database.Redis
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	dc.Logger.InfowCtx(ctx, "Redis connected", "addr", addr, "db", cfg.DB)
	return client, nil
}

// InitMongoDB returns nil when no URI is configured.
func (dc *DatabaseConnector) InitMongoDB(ctx context.Context) (*mongo.Client, error) {
	cfg := dc.Config.Database.MongoDB
	if cfg.URI == "" {
		return nil, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	dc.Logger.InfowCtx(ctx, "MongoDB connected", "database", cfg.Database)
	return client, nil
}

// ShutdownDatabases closes whichever of the clients are non-nil.
func (dc *DatabaseConnector) ShutdownDatabases(ctx context.Context, rdb *redis.Client, pg *sql.DB, mc *mongo.Client) []error {
	var errs []error
	closeWith := func(name string, closeFn func() error) {
		if err := closeFn(); err != nil {
			errs = append(errs, fmt.Errorf("%s close error: %w", name, err))
		}
	}

	if rdb != nil {
		closeWith("redis", rdb.Close)
	}
	if pg != nil {
		closeWith("postgres", pg.Close)
	}
	if mc != nil {
		closeWith("mongodb", func() error { return mc.Disconnect(ctx) })
	}
	return errs
}
