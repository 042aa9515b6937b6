package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"bikeman/internal/ixsi"
)

const (
	ixsiServiceURL     = "http://localhost:8080"
	kafkaBroker        = "localhost:29092"
	inputTopic         = "ixsi_requests"
	outputTopic        = "ixsi_responses"
	knownSystem        = "partner-a"
	messageWaitTimeout = 30 * time.Second
)

// requireService skips the test unless a deployed ixsi-service answers on its health endpoint.
func requireService(t *testing.T) {
	t.Helper()

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(ixsiServiceURL + "/health")
	if err != nil {
		t.Skipf("ixsi-service not reachable: %v", err)
	}
	resp.Body.Close()
}

func newEnvelope(requests ...ixsi.Request) ixsi.Envelope {
	return ixsi.Envelope{TransactionID: uuid.NewString(), Requests: requests}
}

func newRequest(systemID string, auth *ixsi.AuthBlock, payload ixsi.RequestPayload) ixsi.Request {
	return ixsi.Request{
		Transaction: ixsi.Transaction{MessageID: uuid.NewString(), TimeStamp: time.Now().UTC()},
		SystemID:    systemID,
		Auth:        auth,
		Payload:     payload,
	}
}

func postEnvelope(t *testing.T, env ixsi.Envelope) ixsi.Envelope {
	t.Helper()

	body, err := ixsi.EncodeEnvelope(env)
	require.NoError(t, err)

	resp, err := http.Post(ixsiServiceURL+"/api/v1/ixsi", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	out, err := ixsi.DecodeEnvelope(raw)
	require.NoError(t, err)
	return out
}

func sendEnvelopeToKafka(t *testing.T, env ixsi.Envelope) {
	t.Helper()

	body, err := ixsi.EncodeEnvelope(env)
	require.NoError(t, err)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkaBroker),
		Topic:        inputTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, writer.WriteMessages(ctx, kafka.Message{Key: []byte(env.TransactionID), Value: body}))
}

// waitForResponse reads the output topic until the envelope answering transactionID arrives.
func waitForResponse(t *testing.T, transactionID string) *ixsi.Envelope {
	t.Helper()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{kafkaBroker},
		GroupID:     fmt.Sprintf("e2e-%s", transactionID),
		Topic:       outputTopic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), messageWaitTimeout)
	defer cancel()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			return nil
		}
		if string(msg.Key) != transactionID {
			continue
		}
		env, err := ixsi.DecodeEnvelope(msg.Value)
		require.NoError(t, err)
		return &env
	}
}
