package broker

import (
	"context"
	"fmt"

	"bikeman/internal/constants"
	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
	apperrors "bikeman/pkg/errors"
	"bikeman/pkg/logging"
	"bikeman/pkg/metrics"
	"bikeman/pkg/retry"
)

const transportKafka = "kafka"

// Dispatcher answers an inbound envelope.
type Dispatcher interface {
	Dispatch(ctx context.Context, in ixsi.Envelope) (ixsi.Envelope, error)
}

// NewEnvelopeHandler returns a HandlerFunc that decodes an inbound envelope, dispatches it
// and publishes the response envelope to outputTopic keyed by transaction id.
// Undecodable envelopes and configuration faults are returned as fatal errors so the
// consumer moves them to the DLQ without retrying.
func NewEnvelopeHandler(d Dispatcher, producer Producer, outputTopic string, log logger.Logger) HandlerFunc {
	return func(ctx context.Context, msg Message) error {
		if len(msg.Value) > constants.MaxEnvelopeBytes {
			metrics.IncEnvelope(transportKafka, "invalid")
			return retry.NewFatalError(apperrors.ErrValidation.
				WithDetail("message", "envelope too large").
				WithDetail("size", len(msg.Value)))
		}

		in, err := ixsi.DecodeEnvelope(msg.Value)
		if err != nil {
			metrics.IncEnvelope(transportKafka, "invalid")
			return retry.NewFatalError(apperrors.ErrValidation.WithCause(err))
		}
		if len(in.Requests) > constants.MaxBatchSize {
			metrics.IncEnvelope(transportKafka, "invalid")
			return retry.NewFatalError(apperrors.ErrValidation.
				WithDetail("message", "too many requests in envelope").
				WithDetail("requests", len(in.Requests)))
		}

		ctx = logging.WithTransactionID(ctx, in.TransactionID)

		out, err := d.Dispatch(ctx, in)
		if err != nil {
			metrics.IncEnvelope(transportKafka, "aborted")
			if apperrors.IsConfigurationFault(err) {
				return retry.NewFatalError(err)
			}
			return err
		}

		body, err := ixsi.EncodeEnvelope(out)
		if err != nil {
			metrics.IncEnvelope(transportKafka, "error")
			return retry.NewFatalError(err)
		}

		if err := producer.Publish(ctx, outputTopic, Message{Key: out.TransactionID, Value: body}); err != nil {
			metrics.IncEnvelope(transportKafka, "error")
			return fmt.Errorf("failed to publish response envelope: %w", err)
		}

		metrics.IncEnvelope(transportKafka, "ok")
		log.DebugwCtx(ctx, "Response envelope published",
			"topic", outputTopic,
			"responses", len(out.Responses),
		)
		return nil
	}
}
