package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithTransactionID(ctx, "tx-1")
	ctx = WithRequest(ctx, "partner-a", "AvailabilityRequest")
	ctx = WithTraceID(ctx, "trace-9")

	assert.Equal(t, []interface{}{
		"trace_id", "trace-9",
		"transaction_id", "tx-1",
		"system_id", "partner-a",
		"request_tag", "AvailabilityRequest",
	}, GetLogFields(ctx))
	assert.Equal(t, "tx-1", GetTransactionID(ctx))
	assert.Equal(t, "partner-a", GetSystemID(ctx))
	assert.Equal(t, "AvailabilityRequest", GetRequestTag(ctx))
	assert.Equal(t, "", GetServiceName(ctx))
}
