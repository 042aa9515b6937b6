package trust

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bikeman/internal/ixsi"
	"bikeman/internal/logger"
	"bikeman/pkg/metrics"
)

// SystemDirectory knows the partner systems allowed to talk to this service.
type SystemDirectory interface {
	IsValidSystem(ctx context.Context, systemID string) (bool, error)
}

// StaticSystemDirectory is a fixed set of system ids, usually taken from configuration.
type StaticSystemDirectory struct {
	systems map[string]struct{}
}

func NewStaticSystemDirectory(systemIDs []string) *StaticSystemDirectory {
	systems := make(map[string]struct{}, len(systemIDs))
	for _, id := range systemIDs {
		systems[id] = struct{}{}
	}
	return &StaticSystemDirectory{systems: systems}
}

func (d *StaticSystemDirectory) IsValidSystem(_ context.Context, systemID string) (bool, error) {
	_, ok := d.systems[systemID]
	return ok, nil
}

// PostgresSystemDirectory looks systems up in the partner_systems table.
type PostgresSystemDirectory struct {
	db *sql.DB
}

func NewPostgresSystemDirectory(db *sql.DB) *PostgresSystemDirectory {
	return &PostgresSystemDirectory{db: db}
}

func (d *PostgresSystemDirectory) IsValidSystem(ctx context.Context, systemID string) (bool, error) {
	start := time.Now()
	var exists bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM partner_systems WHERE system_id = $1 AND enabled)`,
		systemID,
	).Scan(&exists)
	observeQuery("partner_systems", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to look up partner system: %w", err)
	}
	return exists, nil
}

// SystemValidator is the first trust stage: the requesting system must be known.
type SystemValidator struct {
	directory SystemDirectory
	logger    logger.Logger
}

func NewSystemValidator(directory SystemDirectory, log logger.Logger) *SystemValidator {
	return &SystemValidator{directory: directory, logger: log}
}

// Validate returns nil for a known system and a system-unknown record otherwise.
// A failing directory counts as "unknown" so that the request is still answered.
func (v *SystemValidator) Validate(ctx context.Context, systemID string) *ixsi.ErrorRecord {
	if systemID == "" {
		return ixsi.SystemUnknown()
	}

	ok, err := v.directory.IsValidSystem(ctx, systemID)
	if err != nil {
		v.logger.ErrorwCtx(ctx, "System directory lookup failed", "error", err)
		return ixsi.SystemUnknown()
	}
	if !ok {
		v.logger.WarnwCtx(ctx, "Request from unknown system")
		return ixsi.SystemUnknown()
	}
	return nil
}

func observeQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && err != sql.ErrNoRows {
		status = "error"
	}
	metrics.IncDatabaseQuery("trust", "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration("trust", "postgres", operation, time.Since(start))
}
