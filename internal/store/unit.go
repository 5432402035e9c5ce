package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// UnitStore persists optimization units.
type UnitStore struct {
	db *sql.DB
}

// NewUnitStore creates an optimization unit store.
func NewUnitStore(db *sql.DB) *UnitStore {
	return &UnitStore{db: db}
}

const unitColumns = `id, name, description, enabled, energy_source_id, target_miner_ids,
	home_forecast_provider_id, performance_tracker_id, notifier_ids`

// Get returns the unit with the given id.
func (s *UnitStore) Get(ctx context.Context, id string) (*domain.OptimizationUnit, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+unitColumns+" FROM optimization_units WHERE id = ?", id)
	u, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrUnitNotFound, id)
	}
	return u, err
}

// List returns every unit ordered by name. With enabledOnly set, disabled
// units are left out.
func (s *UnitStore) List(ctx context.Context, enabledOnly bool) ([]*domain.OptimizationUnit, error) {
	query := "SELECT " + unitColumns + " FROM optimization_units"
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("listing optimization units: %w", err)
	}
	defer rows.Close()

	var units []*domain.OptimizationUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating optimization units: %w", err)
	}
	return units, nil
}

// Save inserts or replaces u. An empty ID is filled with a new UUID.
// Reference lists are normalised before writing.
func (s *UnitStore) Save(ctx context.Context, u *domain.OptimizationUnit) error {
	if u == nil || u.Name == "" {
		return fmt.Errorf("%w: optimization unit name is required", ErrInvalidEntity)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Normalize()

	miners, err := json.Marshal(u.TargetMinerIDs)
	if err != nil {
		return fmt.Errorf("encoding target miners: %w", err)
	}
	notifiers, err := json.Marshal(u.NotifierIDs)
	if err != nil {
		return fmt.Errorf("encoding notifiers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO optimization_units (`+unitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			enabled = excluded.enabled,
			energy_source_id = excluded.energy_source_id,
			target_miner_ids = excluded.target_miner_ids,
			home_forecast_provider_id = excluded.home_forecast_provider_id,
			performance_tracker_id = excluded.performance_tracker_id,
			notifier_ids = excluded.notifier_ids,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		u.ID, u.Name, nullString(u.Description), u.Enabled, nullString(u.EnergySourceID), string(miners),
		nullString(u.HomeForecastProviderID), nullString(u.PerformanceTrackerID), string(notifiers))
	if err != nil {
		return fmt.Errorf("saving optimization unit %s: %w", u.ID, err)
	}
	return nil
}

// Delete removes the unit with the given id.
func (s *UnitStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM optimization_units WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting optimization unit %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite3 always reports rows affected
		return fmt.Errorf("%w: %q", ErrUnitNotFound, id)
	}
	return nil
}

func scanUnit(row rowScanner) (*domain.OptimizationUnit, error) {
	var (
		u                       domain.OptimizationUnit
		description, sourceID   sql.NullString
		homeForecast, trackerID sql.NullString
		miners, notifiers       string
	)
	err := row.Scan(&u.ID, &u.Name, &description, &u.Enabled, &sourceID, &miners,
		&homeForecast, &trackerID, &notifiers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning optimization unit: %w", err)
	}
	u.Description = description.String
	u.EnergySourceID = sourceID.String
	u.HomeForecastProviderID = homeForecast.String
	u.PerformanceTrackerID = trackerID.String
	if err := json.Unmarshal([]byte(miners), &u.TargetMinerIDs); err != nil {
		return nil, fmt.Errorf("decoding unit %s target miners: %w", u.ID, err)
	}
	if err := json.Unmarshal([]byte(notifiers), &u.NotifierIDs); err != nil {
		return nil, fmt.Errorf("decoding unit %s notifiers: %w", u.ID, err)
	}
	return &u, nil
}
