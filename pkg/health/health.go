package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const checkTimeout = 5 * time.Second

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMs int64     `json:"latencyMs"`
	Timestamp time.Time `json:"timestamp"`
}

type entry struct {
	checker  Checker
	optional bool
}

// CheckerRegistry aggregates dependency checks. A failing required check makes the service
// unhealthy; a failing optional one only degrades it.
type CheckerRegistry struct {
	entries []entry
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.entries = append(r.entries, entry{checker: checker})
}

func (r *CheckerRegistry) RegisterOptional(checker Checker) {
	r.entries = append(r.entries, entry{checker: checker, optional: true})
}

// Check runs every registered checker concurrently.
func (r *CheckerRegistry) Check(ctx context.Context) Health {
	var (
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(r.entries))
		overall = StatusHealthy
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range r.entries {
		g.Go(func() error {
			result := run(gctx, e)

			mu.Lock()
			defer mu.Unlock()
			results[e.checker.Name()] = result
			overall = worse(overall, result.Status)
			return nil
		})
	}
	_ = g.Wait()

	return Health{
		Status:    overall,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

func run(ctx context.Context, e entry) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := e.checker.Check(ctx)
	result := CheckResult{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now(),
	}
	if err != nil {
		result.Message = err.Error()
		result.Status = StatusUnhealthy
		if e.optional {
			result.Status = StatusDegraded
		}
	}
	return result
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Handler serves the aggregated health as JSON, with 503 when a required check fails.
func (r *CheckerRegistry) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := r.Check(c.Request.Context())
		status := http.StatusOK
		if h.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, h)
	}
}

// FuncChecker adapts a plain function to Checker.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) error
}

func NewFuncChecker(name string, fn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) error {
	if err := c.fn(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", c.name, err)
	}
	return nil
}

func Postgres(db *sql.DB) *FuncChecker {
	return NewFuncChecker("postgresql", db.PingContext)
}

func Redis(client *redis.Client) *FuncChecker {
	return NewFuncChecker("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func MongoDB(client *mongo.Client) *FuncChecker {
	return NewFuncChecker("mongodb", func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
}

// Kafka dials the brokers in order and succeeds on the first that answers.
func Kafka(brokers []string) *FuncChecker {
	return NewFuncChecker("kafka", func(ctx context.Context) error {
		var lastErr error
		for _, addr := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", addr)
			if err != nil {
				lastErr = err
				continue
			}
			return conn.Close()
		}
		if lastErr == nil {
			lastErr = errors.New("no brokers configured")
		}
		return lastErr
	})
}
