package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAvailabilityCollection creates the indexes the availability source queries by.
// The collection itself is created on first insert.
func EnsureAvailabilityCollection(ctx context.Context, db *mongo.Database, name string) error {
	collection := db.Collection(name)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "target_id", Value: 1}},
			Options: options.Index().SetName("idx_" + name + "_target").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_" + name + "_updated_at"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return nil
}
