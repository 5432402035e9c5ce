package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
)

// categoryTables maps each category to its table.
var categoryTables = map[adapter.Category]string{
	adapter.CategoryEnergyMonitor:        "energy_monitors",
	adapter.CategoryMinerController:      "miner_controllers",
	adapter.CategoryNotifier:             "notifiers",
	adapter.CategoryForecastProvider:     "forecast_providers",
	adapter.CategoryHomeForecastProvider: "home_forecast_providers",
	adapter.CategoryPerformanceTracker:   "performance_trackers",
	adapter.CategoryExternalService:      "external_services",
}

// idCategories is every category whose ids share one namespace.
var idCategories = append(slices.Clone(adapter.AdapterCategories), adapter.CategoryExternalService)

// EntityStore persists the adapter entities of one category.
type EntityStore struct {
	db       *sql.DB
	category adapter.Category
	table    string
}

var _ adapter.EntityRepository = (*EntityStore)(nil)

// NewEntityStore creates a store for category.
func NewEntityStore(db *sql.DB, category adapter.Category) (*EntityStore, error) {
	table, ok := categoryTables[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", adapter.ErrInvalidCategory, category)
	}
	return &EntityStore{db: db, category: category, table: table}, nil
}

// Category returns the category this store holds.
func (s *EntityStore) Category() adapter.Category {
	return s.category
}

func (s *EntityStore) isServiceTable() bool {
	return s.category == adapter.CategoryExternalService
}

func (s *EntityStore) columns() string {
	if s.isServiceTable() {
		return "id, name, adapter_type, config, NULL"
	}
	return "id, name, adapter_type, config, external_service_id"
}

// GetByID returns the entity with the given id.
// A missing row yields an error wrapping adapter.ErrNotFound.
func (s *EntityStore) GetByID(ctx context.Context, id string) (*adapter.Entity, error) {
	query := "SELECT " + s.columns() + " FROM " + s.table + " WHERE id = ?"
	e, err := s.scan(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %q", adapter.ErrNotFound, s.category, id)
	}
	return e, err
}

// List returns every entity ordered by name.
func (s *EntityStore) List(ctx context.Context) ([]*adapter.Entity, error) {
	query := "SELECT " + s.columns() + " FROM " + s.table + " ORDER BY name, id"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.table, err)
	}
	defer rows.Close()

	var entities []*adapter.Entity
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", s.table, err)
	}
	return entities, nil
}

// ListByService returns the entities that depend on serviceID.
func (s *EntityStore) ListByService(ctx context.Context, serviceID string) ([]*adapter.Entity, error) {
	if s.isServiceTable() {
		return nil, nil
	}
	query := "SELECT " + s.columns() + " FROM " + s.table + " WHERE external_service_id = ? ORDER BY name, id"
	rows, err := s.db.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("listing %s by service: %w", s.table, err)
	}
	defer rows.Close()

	var entities []*adapter.Entity
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// Save inserts or replaces e. An empty ID is filled with a new UUID.
// An id already held by another category fails with ErrIDConflict.
func (s *EntityStore) Save(ctx context.Context, e *adapter.Entity) error {
	if err := s.validate(e); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Category = s.category

	var config sql.NullString
	if e.Config != nil {
		data, err := json.Marshal(e.Config)
		if err != nil {
			return fmt.Errorf("encoding %s config: %w", s.category, err)
		}
		config = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is a no-op after commit

	owner, err := s.otherOwner(ctx, tx, e.ID)
	if err != nil {
		return err
	}
	if owner != "" {
		return fmt.Errorf("%w: %q is already a %s", ErrIDConflict, e.ID, owner)
	}

	if s.isServiceTable() {
		_, err = tx.ExecContext(ctx, `INSERT INTO external_services (id, name, adapter_type, config)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				adapter_type = excluded.adapter_type,
				config = excluded.config,
				updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
			e.ID, e.Name, string(e.AdapterType), config)
	} else {
		_, err = tx.ExecContext(ctx, "INSERT INTO "+s.table+` (id, name, adapter_type, config, external_service_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				adapter_type = excluded.adapter_type,
				config = excluded.config,
				external_service_id = excluded.external_service_id,
				updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
			e.ID, e.Name, string(e.AdapterType), config, nullString(e.ExternalServiceID))
	}
	if err != nil {
		return fmt.Errorf("saving %s %s: %w", s.category, e.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s %s: %w", s.category, e.ID, err)
	}
	return nil
}

// otherOwner returns the category of another table that already holds id,
// or "" when id is free. Identifiers are unique across every category.
func (s *EntityStore) otherOwner(ctx context.Context, tx *sql.Tx, id string) (adapter.Category, error) {
	for _, category := range idCategories {
		if category == s.category {
			continue
		}
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM "+categoryTables[category]+" WHERE id = ?", id).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return "", fmt.Errorf("checking id %q in %s: %w", id, categoryTables[category], err)
		default:
			return category, nil
		}
	}
	return "", nil
}

// Delete removes the entity with the given id.
func (s *EntityStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", s.category, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite3 always reports rows affected
		return fmt.Errorf("%w: %s %q", adapter.ErrNotFound, s.category, id)
	}
	return nil
}

func (s *EntityStore) validate(e *adapter.Entity) error {
	if e == nil {
		return fmt.Errorf("%w: nil entity", ErrInvalidEntity)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntity)
	}
	if !adapter.KnownAdapterType(s.category, e.AdapterType) {
		return fmt.Errorf("%w: %s/%s", adapter.ErrUnsupportedAdapterType, s.category, e.AdapterType)
	}
	if s.isServiceTable() && e.ExternalServiceID != "" {
		return fmt.Errorf("%w: external services cannot depend on another service", ErrInvalidEntity)
	}
	if e.Config == nil {
		return nil
	}
	if e.Config.AdapterType() != e.AdapterType {
		return fmt.Errorf("%w: config is for %s, entity is %s",
			adapter.ErrInvalidPayload, e.Config.AdapterType(), e.AdapterType)
	}
	if err := e.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %s/%s: %w", adapter.ErrInvalidPayload, s.category, e.AdapterType, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *EntityStore) scan(row rowScanner) (*adapter.Entity, error) {
	var (
		e         adapter.Entity
		typ       string
		config    sql.NullString
		serviceID sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Name, &typ, &config, &serviceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning %s: %w", s.table, err)
	}
	e.Category = s.category
	e.AdapterType = adapter.AdapterType(typ)
	e.ExternalServiceID = serviceID.String

	if config.Valid {
		payload, err := adapter.DecodePayload(s.category, e.AdapterType, []byte(config.String))
		switch {
		case errors.Is(err, adapter.ErrUnsupportedAdapterType):
			// Left for the registry to report.
		case err != nil:
			return nil, fmt.Errorf("%s %q: %w", s.category, e.ID, err)
		default:
			e.Config = payload
		}
	}
	return &e, nil
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
