package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"bikeman/internal/config"
	"bikeman/pkg/metrics"
)

// ErrOpen is wrapped by every error returned for a call the breaker rejected without
// running it.
var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	Name          string
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig trips after three requests with at least half of them failing.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: tripAt(3, 0.5),
	}
}

// FromConfig builds a Config named name from the service configuration. It returns nil when
// circuit breaking is disabled.
func FromConfig(name string, cfg config.CircuitBreakerConfig) *Config {
	if !cfg.Enabled {
		return nil
	}

	cbConfig := DefaultConfig(name)
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = tripAt(cfg.MinRequests, cfg.FailureRatio)
	}
	return &cbConfig
}

func tripAt(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests < minRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

// Wrapper guards calls to one external collaborator and reports its state to Prometheus.
type Wrapper struct {
	cb *gobreaker.CircuitBreaker
}

func NewWrapper(cfg Config) *Wrapper {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.ReadyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			setStateMetric(name, to)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	}

	cb := gobreaker.NewCircuitBreaker(settings)
	setStateMetric(cfg.Name, cb.State())

	return &Wrapper{cb: cb}
}

// Run executes fn through w. A nil wrapper runs fn directly, and a done ctx fails before
// fn is called.
func Run[T any](ctx context.Context, w *Wrapper, fn func() (T, error)) (T, error) {
	if w == nil {
		return fn()
	}

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	result, err := w.cb.Execute(func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	w.record(err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w for %s", ErrOpen, w.Name())
	}
	if err != nil {
		return zero, err
	}

	if result == nil {
		return zero, nil
	}
	value, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker %s: unexpected result type %T", w.Name(), result)
	}
	return value, nil
}

func (w *Wrapper) State() gobreaker.State {
	return w.cb.State()
}

func (w *Wrapper) Name() string {
	return w.cb.Name()
}

func (w *Wrapper) IsOpen() bool {
	return w.cb.State() == gobreaker.StateOpen
}

func (w *Wrapper) record(err error) {
	metrics.CircuitBreakerRequests.WithLabelValues(w.cb.Name(), w.cb.State().String()).Inc()
	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(w.cb.Name()).Inc()
	}
}

// setStateMetric publishes closed as 0, half-open as 1 and open as 2.
func setStateMetric(name string, state gobreaker.State) {
	var value float64
	switch state {
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(value)
}
