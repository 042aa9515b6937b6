package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestCheckerRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		required []*FuncChecker
		optional []*FuncChecker
		want     Status
	}{
		{
			name: "no checkers",
			want: StatusHealthy,
		},
		{
			name:     "all healthy",
			required: []*FuncChecker{NewFuncChecker("postgresql", ok)},
			optional: []*FuncChecker{NewFuncChecker("kafka", ok)},
			want:     StatusHealthy,
		},
		{
			name:     "optional failure degrades",
			required: []*FuncChecker{NewFuncChecker("postgresql", ok)},
			optional: []*FuncChecker{NewFuncChecker("kafka", down)},
			want:     StatusDegraded,
		},
		{
			name:     "required failure wins",
			required: []*FuncChecker{NewFuncChecker("redis", down)},
			optional: []*FuncChecker{NewFuncChecker("kafka", down)},
			want:     StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.required {
				r.Register(c)
			}
			for _, c := range tt.optional {
				r.RegisterOptional(c)
			}

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.required)+len(tt.optional))
		})
	}
}

func TestCheckerRegistry_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewCheckerRegistry()
	r.Register(NewFuncChecker("redis", down))

	router := gin.New()
	router.GET("/health", r.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var h Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, StatusUnhealthy, h.Checks["redis"].Status)
	assert.Equal(t, "redis ping failed: connection refused", h.Checks["redis"].Message)
}

func TestKafka_NoBrokers(t *testing.T) {
	err := Kafka(nil).Check(context.Background())
	assert.EqualError(t, err, "kafka ping failed: no brokers configured")
}
