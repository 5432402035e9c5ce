package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/policy"
)

// RuleStore persists automation rules.
type RuleStore struct {
	db *sql.DB
}

// NewRuleStore creates a rule store.
func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

const ruleColumns = "id, name, description, priority, enabled, conditions"

// Get returns the rule with the given id.
func (s *RuleStore) Get(ctx context.Context, id string) (*domain.AutomationRule, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM automation_rules WHERE id = ?", id)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrRuleNotFound, id)
	}
	return r, err
}

// List returns every rule, highest priority first.
func (s *RuleStore) List(ctx context.Context) ([]domain.AutomationRule, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+ruleColumns+" FROM automation_rules ORDER BY priority DESC, name")
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.AutomationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

// Save inserts or replaces r after checking its conditions.
func (s *RuleStore) Save(ctx context.Context, r *domain.AutomationRule) error {
	if r == nil || r.Name == "" {
		return fmt.Errorf("%w: rule name is required", ErrInvalidEntity)
	}
	if err := policy.ValidateConditions(r.Conditions); err != nil {
		return fmt.Errorf("%w: rule %q: %w", ErrInvalidEntity, r.Name, err)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return fmt.Errorf("encoding rule conditions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO automation_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			priority = excluded.priority,
			enabled = excluded.enabled,
			conditions = excluded.conditions,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		r.ID, r.Name, nullString(r.Description), r.Priority, r.Enabled, string(conditions))
	if err != nil {
		return fmt.Errorf("saving rule %s: %w", r.ID, err)
	}
	return nil
}

// Delete removes the rule with the given id.
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM automation_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite3 always reports rows affected
		return fmt.Errorf("%w: %q", ErrRuleNotFound, id)
	}
	return nil
}

func scanRule(row rowScanner) (*domain.AutomationRule, error) {
	var (
		r           domain.AutomationRule
		description sql.NullString
		conditions  string
	)
	if err := row.Scan(&r.ID, &r.Name, &description, &r.Priority, &r.Enabled, &conditions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning rule: %w", err)
	}
	r.Description = description.String
	if err := json.Unmarshal([]byte(conditions), &r.Conditions); err != nil {
		return nil, fmt.Errorf("decoding rule %s conditions: %w", r.ID, err)
	}
	return &r, nil
}
