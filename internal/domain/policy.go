package domain

import "time"

// AutomationRule is a prioritised condition tree.
// Conditions is either a single {field, operator, value} condition or a
// logical group {all_of | any_of | not}.
type AutomationRule struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Priority    int            `json:"priority"`
	Enabled     bool           `json:"enabled"`
	Conditions  map[string]any `json:"conditions"`
}

// DecisionalContext is the input to a rule evaluation.
// Field paths in rule conditions follow the JSON names below.
type DecisionalContext struct {
	EnergySource           *EnergySource        `json:"energy_source,omitempty"`
	EnergyState            *EnergyStateSnapshot `json:"energy_state,omitempty"`
	Forecast               *ForecastData        `json:"forecast,omitempty"`
	HomeLoadForecast       *ConsumptionForecast `json:"home_load_forecast,omitempty"`
	TrackerCurrentHashRate *HashRate            `json:"tracker_current_hashrate,omitempty"`
	Miner                  *Miner               `json:"miner,omitempty"`
	Timestamp              time.Time            `json:"timestamp"`
}

// RuleEngine evaluates automation rules against a context.
type RuleEngine interface {
	LoadRules(rules []AutomationRule)
	Evaluate(ctx DecisionalContext) bool
}
