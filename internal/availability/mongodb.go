package availability

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bikeman/internal/ixsi"
)

// TargetDocument is the stored form of a booking target in MongoDB.
type TargetDocument struct {
	ProviderID    string    `bson:"provider_id"`
	TargetID      string    `bson:"target_id"`
	Name          string    `bson:"name,omitempty"`
	PlaceID       string    `bson:"place_id,omitempty"`
	Class         string    `bson:"class,omitempty"`
	Latitude      float64   `bson:"latitude"`
	Longitude     float64   `bson:"longitude"`
	StateOfCharge *float64  `bson:"state_of_charge,omitempty"`
	Available     bool      `bson:"available"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func (d TargetDocument) id() ixsi.BookingTargetID {
	return ixsi.BookingTargetID{ProviderID: d.ProviderID, ID: d.TargetID}
}

func (d TargetDocument) record() ixsi.AvailabilityRecord {
	return ixsi.AvailabilityRecord{
		Target:        d.id(),
		PlaceID:       d.PlaceID,
		Latitude:      d.Latitude,
		Longitude:     d.Longitude,
		StateOfCharge: d.StateOfCharge,
		Available:     d.Available,
	}
}

type MongoSource struct {
	collection *mongo.Collection
}

func NewMongoSource(db *mongo.Database, collection string) *MongoSource {
	return &MongoSource{collection: db.Collection(collection)}
}

func (s *MongoSource) Snapshot(ctx context.Context, targets []ixsi.BookingTargetID) ([]ixsi.AvailabilityRecord, error) {
	if len(targets) == 0 {
		return []ixsi.AvailabilityRecord{}, nil
	}

	pairs := make(bson.A, 0, len(targets))
	for _, t := range targets {
		pairs = append(pairs, bson.M{"provider_id": t.ProviderID, "target_id": t.ID})
	}

	cursor, err := s.collection.Find(ctx, bson.M{"$or": pairs})
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []TargetDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %w", err)
	}

	found := make(map[ixsi.BookingTargetID]ixsi.AvailabilityRecord, len(docs))
	for _, d := range docs {
		found[d.id()] = d.record()
	}
	return orderBy(targets, found), nil
}

func (s *MongoSource) ChangedProviders(ctx context.Context, sinceMillis int64) (bool, error) {
	filter := bson.M{"updated_at": bson.M{"$gt": time.UnixMilli(sinceMillis).UTC()}}
	n, err := s.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to query changed providers: %w", err)
	}
	return n > 0, nil
}

func (s *MongoSource) Targets(ctx context.Context, providerIDs []string) ([]ixsi.BookingTargetInfo, error) {
	filter := bson.M{}
	if len(providerIDs) > 0 {
		filter["provider_id"] = bson.M{"$in": providerIDs}
	}

	opts := options.Find().SetSort(bson.D{{Key: "provider_id", Value: 1}, {Key: "target_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking targets: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []TargetDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode booking targets: %w", err)
	}

	out := make([]ixsi.BookingTargetInfo, 0, len(docs))
	for _, d := range docs {
		out = append(out, ixsi.BookingTargetInfo{
			Target:  d.id(),
			Name:    d.Name,
			PlaceID: d.PlaceID,
			Class:   d.Class,
		})
	}
	return out, nil
}
