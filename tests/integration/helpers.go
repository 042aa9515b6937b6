package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"bikeman/internal/availability"
	"bikeman/internal/config"
	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
)

const (
	containerStartupTimeout = 60
	targetCollection        = "booking_targets"
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestKafkaConfig(brokers []string, suffix string) config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:     brokers,
		GroupID:     "bikeman-it-" + suffix,
		InputTopic:  "ixsi_requests_" + suffix,
		OutputTopic: "ixsi_responses_" + suffix,
		DLQTopic:    "ixsi_requests_dlq_" + suffix,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     200 * time.Millisecond,
			Multiplier:      2,
		},
	}
}

func target(provider, id string) ixsi.BookingTargetID {
	return ixsi.BookingTargetID{ProviderID: provider, ID: id}
}

func insertPostgresTarget(t *testing.T, db *sql.DB, doc availability.TargetDocument) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO booking_targets (provider_id, target_id, name, place_id, class, latitude, longitude, state_of_charge, available, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ProviderID, doc.TargetID, doc.Name, doc.PlaceID, doc.Class,
		doc.Latitude, doc.Longitude, doc.StateOfCharge, doc.Available, doc.UpdatedAt,
	)
	require.NoError(t, err)
}

func insertMongoTarget(t *testing.T, db *mongo.Database, doc availability.TargetDocument) {
	t.Helper()

	_, err := db.Collection(targetCollection).InsertOne(context.Background(), doc)
	require.NoError(t, err)
}

func bike(provider, id string, available bool, updatedAt time.Time) availability.TargetDocument {
	charge := 0.8
	return availability.TargetDocument{
		ProviderID:    provider,
		TargetID:      id,
		Name:          "Bike " + id,
		PlaceID:       "station-1",
		Class:         "pedelec",
		Latitude:      50.7374,
		Longitude:     7.0982,
		StateOfCharge: &charge,
		Available:     available,
		UpdatedAt:     updatedAt.UTC().Truncate(time.Millisecond),
	}
}
