package availability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"bikeman/internal/ixsi"
)

type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Snapshot(ctx context.Context, targets []ixsi.BookingTargetID) ([]ixsi.AvailabilityRecord, error) {
	if len(targets) == 0 {
		return []ixsi.AvailabilityRecord{}, nil
	}

	providers := make([]string, len(targets))
	ids := make([]string, len(targets))
	for i, t := range targets {
		providers[i] = t.ProviderID
		ids[i] = t.ID
	}

	query := `
		SELECT b.provider_id, b.target_id, b.place_id, b.latitude, b.longitude, b.state_of_charge, b.available
		FROM booking_targets b
		JOIN unnest($1::text[], $2::text[]) AS k(provider_id, target_id)
			ON b.provider_id = k.provider_id AND b.target_id = k.target_id`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(providers), pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	found := make(map[ixsi.BookingTargetID]ixsi.AvailabilityRecord, len(targets))
	for rows.Next() {
		var rec ixsi.AvailabilityRecord
		var soc sql.NullFloat64
		if err := rows.Scan(
			&rec.Target.ProviderID,
			&rec.Target.ID,
			&rec.PlaceID,
			&rec.Latitude,
			&rec.Longitude,
			&soc,
			&rec.Available,
		); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		if soc.Valid {
			v := soc.Float64
			rec.StateOfCharge = &v
		}
		found[rec.Target] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating availability: %w", err)
	}

	return orderBy(targets, found), nil
}

func (s *PostgresSource) ChangedProviders(ctx context.Context, sinceMillis int64) (bool, error) {
	var changed bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM booking_targets WHERE updated_at > $1)`,
		time.UnixMilli(sinceMillis).UTC(),
	).Scan(&changed)
	if err != nil {
		return false, fmt.Errorf("failed to query changed providers: %w", err)
	}
	return changed, nil
}

func (s *PostgresSource) Targets(ctx context.Context, providerIDs []string) ([]ixsi.BookingTargetInfo, error) {
	query := `
		SELECT provider_id, target_id, name, place_id, class
		FROM booking_targets
		WHERE cardinality($1::text[]) = 0 OR provider_id = ANY($1)
		ORDER BY provider_id, target_id`

	if providerIDs == nil {
		providerIDs = []string{}
	}

	rows, err := s.db.QueryContext(ctx, query, pq.Array(providerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query booking targets: %w", err)
	}
	defer rows.Close()

	var out []ixsi.BookingTargetInfo
	for rows.Next() {
		var info ixsi.BookingTargetInfo
		if err := rows.Scan(&info.Target.ProviderID, &info.Target.ID, &info.Name, &info.PlaceID, &info.Class); err != nil {
			return nil, fmt.Errorf("failed to scan booking target: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating booking targets: %w", err)
	}
	return out, nil
}
