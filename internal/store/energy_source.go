package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// EnergySourceStore persists energy sources.
type EnergySourceStore struct {
	db *sql.DB
}

// NewEnergySourceStore creates an energy source store.
func NewEnergySourceStore(db *sql.DB) *EnergySourceStore {
	return &EnergySourceStore{db: db}
}

const energySourceColumns = `id, name, type, nominal_power_max, storage_capacity,
	grid_contracted_power, energy_monitor_id, forecast_provider_id`

// Get returns the energy source with the given id.
func (s *EnergySourceStore) Get(ctx context.Context, id string) (*domain.EnergySource, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+energySourceColumns+" FROM energy_sources WHERE id = ?", id)
	src, err := scanEnergySource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrEnergySourceNotFound, id)
	}
	return src, err
}

// List returns every energy source ordered by name.
func (s *EnergySourceStore) List(ctx context.Context) ([]*domain.EnergySource, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+energySourceColumns+" FROM energy_sources ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("listing energy sources: %w", err)
	}
	defer rows.Close()

	var sources []*domain.EnergySource
	for rows.Next() {
		src, err := scanEnergySource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating energy sources: %w", err)
	}
	return sources, nil
}

// Save inserts or replaces src. An empty ID is filled with a new UUID.
func (s *EnergySourceStore) Save(ctx context.Context, src *domain.EnergySource) error {
	if src == nil || src.Name == "" {
		return fmt.Errorf("%w: energy source name is required", ErrInvalidEntity)
	}
	if src.Type == "" {
		src.Type = domain.EnergySourceOther
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO energy_sources (`+energySourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			nominal_power_max = excluded.nominal_power_max,
			storage_capacity = excluded.storage_capacity,
			grid_contracted_power = excluded.grid_contracted_power,
			energy_monitor_id = excluded.energy_monitor_id,
			forecast_provider_id = excluded.forecast_provider_id,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		src.ID, src.Name, string(src.Type),
		float64(src.NominalPowerMax), float64(src.StorageCapacity), float64(src.GridContractPower),
		nullString(src.EnergyMonitorID), nullString(src.ForecastProviderID))
	if err != nil {
		return fmt.Errorf("saving energy source %s: %w", src.ID, err)
	}
	return nil
}

// Delete removes the energy source with the given id.
func (s *EnergySourceStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM energy_sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting energy source %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite3 always reports rows affected
		return fmt.Errorf("%w: %q", ErrEnergySourceNotFound, id)
	}
	return nil
}

func scanEnergySource(row rowScanner) (*domain.EnergySource, error) {
	var (
		src                        domain.EnergySource
		typ                        string
		nominal, storage, contract float64
		monitorID, forecastID      sql.NullString
	)
	err := row.Scan(&src.ID, &src.Name, &typ, &nominal, &storage, &contract, &monitorID, &forecastID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning energy source: %w", err)
	}
	src.Type = domain.EnergySourceType(typ)
	src.NominalPowerMax = domain.Watts(nominal)
	src.StorageCapacity = domain.WattHours(storage)
	src.GridContractPower = domain.Watts(contract)
	src.EnergyMonitorID = monitorID.String
	src.ForecastProviderID = forecastID.String
	return &src, nil
}
