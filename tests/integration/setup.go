package integration

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	postgresmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bikeman/pkg/migrations"
)

// Dependency names a container a test needs.
type Dependency int

const (
	Postgres Dependency = iota
	Mongo
	Redis
	Kafka
)

const (
	testDatabase = "bikeman_test"
	testUser     = "bikeman"
	testPassword = "bikeman"
	pingTimeout  = 10 * time.Second
)

type TestInfra struct {
	PostgresDB   *sql.DB
	MongoDB      *mongo.Database
	RedisClient  *redis.Client
	KafkaBrokers []string
}

// Setup starts the requested containers. Each is terminated when the test ends.
func Setup(t *testing.T, deps ...Dependency) *TestInfra {
	t.Helper()

	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	ctx := context.Background()
	infra := &TestInfra{}
	for _, dep := range deps {
		switch dep {
		case Postgres:
			infra.PostgresDB = startPostgres(t, ctx)
		case Mongo:
			infra.MongoDB = startMongo(t, ctx)
		case Redis:
			infra.RedisClient = startRedis(t, ctx)
		case Kafka:
			infra.KafkaBrokers = startKafka(t, ctx)
		}
	}
	return infra
}

func terminateOnCleanup(t *testing.T, c testcontainers.Container) {
	t.Cleanup(func() {
		_ = c.Terminate(context.Background())
	})
}

func startPostgres(t *testing.T, ctx context.Context) *sql.DB {
	container, err := postgresmodule.Run(ctx, "postgres:15",
		postgresmodule.WithDatabase(testDatabase),
		postgresmodule.WithUsername(testUser),
		postgresmodule.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(containerStartupTimeout*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	terminateOnCleanup(t, container)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(pingCtx), "ping postgres")
	require.NoError(t, migrations.RunPostgres(db), "migrate postgres")

	return db
}

func startMongo(t *testing.T, ctx context.Context) *mongo.Database {
	container, err := mongodb.Run(ctx, "mongo:6",
		mongodb.WithUsername(testUser),
		mongodb.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Waiting for connections").WithStartupTimeout(containerStartupTimeout*time.Second),
		),
	)
	require.NoError(t, err, "start mongo container")
	terminateOnCleanup(t, container)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	require.NoError(t, client.Ping(pingCtx, nil), "ping mongo")

	return client.Database(testDatabase)
}

func startRedis(t *testing.T, ctx context.Context) *redis.Client {
	container, err := redismodule.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "start redis container")
	terminateOnCleanup(t, container)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	require.NoError(t, client.Ping(pingCtx).Err(), "ping redis")

	return client
}

func startKafka(t *testing.T, ctx context.Context) []string {
	container, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafkamodule.WithClusterID("bikeman-test"),
	)
	require.NoError(t, err, "start kafka container")
	terminateOnCleanup(t, container)

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	return brokers
}
