package gateway

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bikeman/internal/constants"
	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
	"bikeman/internal/subscription"
	"bikeman/pkg/errors"
	"bikeman/pkg/metrics"
)

const transportHTTP = "http"

type Dispatcher interface {
	Dispatch(ctx context.Context, in ixsi.Envelope) (ixsi.Envelope, error)
}

type Subscriptions interface {
	Subscriptions(ctx context.Context, systemID string) ([]subscription.Subscription, error)
}

type Handler struct {
	dispatcher    Dispatcher
	subscriptions Subscriptions
	opsToken      string
	logger        logger.Logger
}

// NewHandler builds the HTTP gateway. The subscription listing is an operator route: it
// is only mounted when opsToken is set, and callers must present it as a bearer token.
func NewHandler(dispatcher Dispatcher, subscriptions Subscriptions, opsToken string, log logger.Logger) *Handler {
	return &Handler{
		dispatcher:    dispatcher,
		subscriptions: subscriptions,
		opsToken:      opsToken,
		logger:        log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/ixsi", h.Dispatch)
	}

	if h.opsToken != "" {
		ops := v1.Group("/ops", h.requireOpsToken)
		{
			ops.GET("/systems/:systemId/subscriptions", h.ListSubscriptions)
		}
	}
}

func (h *Handler) requireOpsToken(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.opsToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrUnauthorized))
		return
	}
	c.Next()
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

func (h *Handler) badRequest(c *gin.Context, err *errors.Error) {
	metrics.IncEnvelope(transportHTTP, "invalid")
	c.JSON(http.StatusBadRequest, errors.ToErrorResponse(err))
}

// Dispatch answers one IXSI envelope synchronously. Protocol errors travel inside the
// response envelope, so any envelope that could be dispatched is answered with 200.
//
// Dispatch godoc
// @Summary      Dispatch an IXSI envelope
// @Description  Decode a request envelope, answer every request in it and return the response envelope
// @Tags         ixsi
// @Accept       json
// @Produce      json
// @Param        envelope  body      object  true  "IXSI request envelope"
// @Success      200       {object}  object
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /ixsi [post]
func (h *Handler) Dispatch(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxEnvelopeBytes))
	if err != nil {
		h.badRequest(c, errors.ErrValidation.WithDetail("message", "envelope could not be read").WithCause(err))
		return
	}

	in, err := ixsi.DecodeEnvelope(body)
	if err != nil {
		h.badRequest(c, errors.ErrValidation.WithCause(err))
		return
	}
	if len(in.Requests) > constants.MaxBatchSize {
		h.badRequest(c, errors.ErrValidation.
			WithDetail("message", "too many requests in envelope").
			WithDetail("requests", len(in.Requests)))
		return
	}

	out, err := h.dispatcher.Dispatch(c.Request.Context(), in)
	if err != nil {
		metrics.IncEnvelope(transportHTTP, "aborted")
		h.HandleError(c, err)
		return
	}

	resp, err := ixsi.EncodeEnvelope(out)
	if err != nil {
		metrics.IncEnvelope(transportHTTP, "error")
		h.HandleError(c, err)
		return
	}

	metrics.IncEnvelope(transportHTTP, "ok")
	c.Data(http.StatusOK, "application/json", resp)
}

type subscriptionsResponse struct {
	SystemID      string                      `json:"systemId"`
	Subscriptions []subscription.Subscription `json:"subscriptions"`
}

// ListSubscriptions godoc
// @Summary      List subscriptions of a partner system
// @Description  Get the active booking target subscriptions of one partner system
// @Tags         ops
// @Produce      json
// @Security     OpsToken
// @Param        systemId  path      string  true  "Partner system ID"
// @Success      200       {object}  subscriptionsResponse
// @Failure      401       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /ops/systems/{systemId}/subscriptions [get]
func (h *Handler) ListSubscriptions(c *gin.Context) {
	systemID := c.Param("systemId")

	subs, err := h.subscriptions.Subscriptions(c.Request.Context(), systemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if subs == nil {
		subs = []subscription.Subscription{}
	}

	c.JSON(http.StatusOK, subscriptionsResponse{SystemID: systemID, Subscriptions: subs})
}
