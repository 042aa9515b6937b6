package dispatcher

import (
	"context"
	"errors"

	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
	apperrors "bikeman/pkg/errors"
	"bikeman/pkg/metrics"
)

const noResponseMessage = "processor returned no response"

// guard runs one processor invocation and always yields a response payload for its slot.
// Panics and errors other than *ixsi.ErrorRecord become backend failures built through the
// processor's own BuildError.
func guard[R ixsi.ResponsePayload](
	ctx context.Context,
	log logger.Logger,
	tag ixsi.Tag,
	buildError func(*ixsi.ErrorRecord) R,
	fn func(context.Context) (R, error),
) (resp R) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := apperrors.RecoverPanic(r)
		metrics.IncHandlerPanic(string(tag))
		log.ErrorwCtx(ctx, "Recovered panic in processor", "error", apperrors.Cause(err), "stack_trace", stackTrace(err))
		resp = buildError(ixsi.BackendFailure(apperrors.Cause(err).Error()))
	}()

	out, err := fn(ctx)
	if err != nil {
		var rec *ixsi.ErrorRecord
		if errors.As(err, &rec) {
			log.DebugwCtx(ctx, "Processor answered with protocol error", "code", rec.Code, "message", rec.Message)
			return buildError(rec)
		}
		log.ErrorwCtx(ctx, "Processor failed", "error", err)
		return buildError(ixsi.BackendFailure(err.Error()))
	}
	if any(out) == nil {
		log.ErrorwCtx(ctx, "Processor returned neither response nor error")
		return buildError(ixsi.BackendFailure(noResponseMessage))
	}
	return out
}

func stackTrace(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		if s, ok := appErr.Details["stack_trace"].(string); ok {
			return s
		}
	}
	return ""
}
