package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bikeman/internal/config"
	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
	"bikeman/internal/processor"
	apperrors "bikeman/pkg/errors"
	"bikeman/pkg/logging"
	"bikeman/pkg/metrics"
	"bikeman/pkg/tracing"
)

const tracerName = "ixsi-dispatcher"

// SystemValidator is the first trust stage. It returns nil for a known system.
type SystemValidator interface {
	Validate(ctx context.Context, systemID string) *ixsi.ErrorRecord
}

// Authenticator resolves the auth block of a user-triggered request.
type Authenticator interface {
	Authenticate(ctx context.Context, auth *ixsi.AuthBlock) (ixsi.Identity, error)
}

type Options struct {
	Parallel       bool
	MaxConcurrency int
	RequestTimeout time.Duration
}

func OptionsFromConfig(cfg config.DispatchConfig) Options {
	return Options{
		Parallel:       cfg.Parallel,
		MaxConcurrency: cfg.MaxConcurrency,
		RequestTimeout: cfg.RequestTimeout,
	}
}

// Dispatcher answers every request of an inbound envelope with exactly one response at the
// same position. Failures of a single request stay in its response; only a configuration
// fault aborts the envelope.
type Dispatcher struct {
	registry *processor.Registry
	systems  SystemValidator
	auth     Authenticator
	opts     Options
	logger   logger.Logger
}

func New(registry *processor.Registry, systems SystemValidator, auth Authenticator, opts Options, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		systems:  systems,
		auth:     auth,
		opts:     opts,
		logger:   log,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, in ixsi.Envelope) (ixsi.Envelope, error) {
	ctx = logging.WithTransactionID(ctx, in.TransactionID)
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "dispatcher.dispatch",
		trace.WithAttributes(
			attribute.String("ixsi.transaction_id", in.TransactionID),
			attribute.Int("ixsi.batch_size", len(in.Requests)),
		))
	defer span.End()

	metrics.ObserveBatchSize(len(in.Requests))

	responses := make([]ixsi.Response, len(in.Requests))
	var err error
	if d.opts.Parallel && len(in.Requests) > 1 {
		err = d.dispatchParallel(ctx, in.Requests, responses)
	} else {
		err = d.dispatchSequential(ctx, in.Requests, responses)
	}
	if err != nil {
		tracing.RecordError(span, err)
		d.logger.ErrorwCtx(ctx, "Envelope aborted", "error", err)
		return ixsi.Envelope{}, err
	}

	d.logger.DebugwCtx(ctx, "Envelope dispatched", "requests", len(in.Requests))
	return ixsi.Envelope{TransactionID: in.TransactionID, Responses: responses}, nil
}

func (d *Dispatcher) dispatchSequential(ctx context.Context, requests []ixsi.Request, out []ixsi.Response) error {
	for i, req := range requests {
		resp, err := d.handle(ctx, req)
		if err != nil {
			return err
		}
		out[i] = resp
	}
	return nil
}

// dispatchParallel runs the requests concurrently. Each goroutine writes only its own slot.
func (d *Dispatcher) dispatchParallel(ctx context.Context, requests []ixsi.Request, out []ixsi.Response) error {
	g, gctx := errgroup.WithContext(ctx)
	if d.opts.MaxConcurrency > 0 {
		g.SetLimit(d.opts.MaxConcurrency)
	}

	for i := range requests {
		g.Go(func() error {
			resp, err := d.handle(gctx, requests[i])
			if err != nil {
				return err
			}
			out[i] = resp
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) handle(ctx context.Context, req ixsi.Request) (ixsi.Response, error) {
	start := time.Now()
	tag := req.Tag()

	ctx = logging.WithRequest(ctx, req.SystemID, string(tag))
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "dispatcher.request",
		trace.WithAttributes(
			attribute.String("ixsi.tag", string(tag)),
			attribute.String("ixsi.system_id", req.SystemID),
		))
	defer span.End()

	if d.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.RequestTimeout)
		defer cancel()
	}

	payload, family, err := d.route(ctx, req)
	if err != nil {
		tracing.RecordError(span, err)
		return ixsi.Response{}, err
	}

	elapsed := time.Since(start)
	outcome := "ok"
	if rec := payload.Failure(); rec != nil {
		outcome = string(rec.Code)
		span.SetAttributes(attribute.String("ixsi.error_code", outcome))
	}
	metrics.IncRequest(string(tag), family.String(), outcome)
	metrics.ObserveRequestDuration(string(tag), elapsed)

	return ixsi.Response{
		Transaction: req.Transaction,
		CalcTime:    elapsed,
		Payload:     payload,
	}, nil
}

// route validates the requesting system and hands the request to the processor of its
// family. An unknown system is answered without touching the registry or the authenticator.
func (d *Dispatcher) route(ctx context.Context, req ixsi.Request) (ixsi.ResponsePayload, ixsi.Family, error) {
	tag := req.Tag()

	switch p := req.Payload.(type) {
	case ixsi.StaticRequest:
		if rec := d.systems.Validate(ctx, req.SystemID); rec != nil {
			return ixsi.Failed(tag, rec), ixsi.FamilyStatic, nil
		}
		proc, err := d.registry.Static(tag)
		if err != nil {
			return nil, ixsi.FamilyStatic, err
		}
		return guard(ctx, d.logger, tag, proc.BuildError, func(ctx context.Context) (ixsi.StaticResponse, error) {
			return proc.Process(ctx, p)
		}), ixsi.FamilyStatic, nil

	case ixsi.UserRequest:
		if rec := d.systems.Validate(ctx, req.SystemID); rec != nil {
			return ixsi.Failed(tag, rec), ixsi.FamilyUserTriggered, nil
		}
		proc, err := d.registry.User(tag)
		if err != nil {
			return nil, ixsi.FamilyUserTriggered, err
		}
		return guard(ctx, d.logger, tag, proc.BuildError, func(ctx context.Context) (ixsi.UserResponse, error) {
			identity, err := d.auth.Authenticate(ctx, req.Auth)
			if err != nil {
				return nil, err
			}
			if identity.Anonymous {
				return proc.ProcessAnonymously(ctx, req.Language, p)
			}
			return proc.ProcessForUser(ctx, req.Language, identity, p)
		}), ixsi.FamilyUserTriggered, nil

	case ixsi.SubscriptionRequest:
		if rec := d.systems.Validate(ctx, req.SystemID); rec != nil {
			return ixsi.Failed(tag, rec), ixsi.FamilySubscription, nil
		}
		proc, err := d.registry.Subscription(tag)
		if err != nil {
			return nil, ixsi.FamilySubscription, err
		}
		return guard(ctx, d.logger, tag, proc.BuildError, func(ctx context.Context) (ixsi.SubscriptionResponse, error) {
			return proc.Process(ctx, p, req.SystemID)
		}), ixsi.FamilySubscription, nil

	default:
		return nil, ixsi.FamilyUnknown, apperrors.ErrConfigurationFault.
			WithDetail("tag", string(tag)).
			WithCause(fmt.Errorf("request payload %T belongs to no request family", req.Payload))
	}
}
