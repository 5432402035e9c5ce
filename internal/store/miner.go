package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// MinerStore persists miners.
type MinerStore struct {
	db *sql.DB
}

// NewMinerStore creates a miner store.
func NewMinerStore(db *sql.DB) *MinerStore {
	return &MinerStore{db: db}
}

const minerColumns = `id, name, status, active, hash_rate_max, hash_rate_unit,
	power_consumption_max, controller_id`

// Get returns the miner with the given id.
func (s *MinerStore) Get(ctx context.Context, id string) (*domain.Miner, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+minerColumns+" FROM miners WHERE id = ?", id)
	m, err := scanMiner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrMinerNotFound, id)
	}
	return m, err
}

// List returns every miner ordered by name.
func (s *MinerStore) List(ctx context.Context) ([]*domain.Miner, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+minerColumns+" FROM miners ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("listing miners: %w", err)
	}
	defer rows.Close()

	var miners []*domain.Miner
	for rows.Next() {
		m, err := scanMiner(rows)
		if err != nil {
			return nil, err
		}
		miners = append(miners, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating miners: %w", err)
	}
	return miners, nil
}

// Save inserts or replaces m. An empty ID is filled with a new UUID.
func (s *MinerStore) Save(ctx context.Context, m *domain.Miner) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("%w: miner name is required", ErrInvalidEntity)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MinerStatusUnknown
	}

	var hashRate sql.NullFloat64
	var unit sql.NullString
	if m.HashRateMax != nil {
		hashRate = sql.NullFloat64{Float64: m.HashRateMax.Value, Valid: true}
		unit = nullString(m.HashRateMax.Unit)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO miners (`+minerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			active = excluded.active,
			hash_rate_max = excluded.hash_rate_max,
			hash_rate_unit = excluded.hash_rate_unit,
			power_consumption_max = excluded.power_consumption_max,
			controller_id = excluded.controller_id,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		m.ID, m.Name, string(m.Status), m.Active, hashRate, unit,
		float64(m.PowerConsumptionMax), nullString(m.ControllerID))
	if err != nil {
		return fmt.Errorf("saving miner %s: %w", m.ID, err)
	}
	return nil
}

// UpdateStatus records the last observed status of a miner.
func (s *MinerStore) UpdateStatus(ctx context.Context, id string, status domain.MinerStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE miners
		SET status = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating miner %s status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite3 always reports rows affected
		return fmt.Errorf("%w: %q", ErrMinerNotFound, id)
	}
	return nil
}

// Delete removes the miner with the given id.
func (s *MinerStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM miners WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting miner %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite3 always reports rows affected
		return fmt.Errorf("%w: %q", ErrMinerNotFound, id)
	}
	return nil
}

func scanMiner(row rowScanner) (*domain.Miner, error) {
	var (
		m            domain.Miner
		status       string
		hashRate     sql.NullFloat64
		unit         sql.NullString
		powerMax     float64
		controllerID sql.NullString
	)
	err := row.Scan(&m.ID, &m.Name, &status, &m.Active, &hashRate, &unit, &powerMax, &controllerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning miner: %w", err)
	}
	m.Status = domain.ParseMinerStatus(status)
	if hashRate.Valid {
		m.HashRateMax = &domain.HashRate{Value: hashRate.Float64, Unit: unit.String}
	}
	m.PowerConsumptionMax = domain.Watts(powerMax)
	m.ControllerID = controllerID.String
	return &m, nil
}
