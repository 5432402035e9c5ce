package policy

import (
	"cmp"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine evaluates a set of automation rules.
//
// Thread Safety: LoadRules and Evaluate are safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	rules  []domain.AutomationRule
	logger Logger

	reMu    sync.Mutex
	regexes map[string]*regexp.Regexp
}

var _ domain.RuleEngine = (*Engine)(nil)

// NewEngine creates an engine with no rules.
func NewEngine(logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		logger:  logger,
		regexes: make(map[string]*regexp.Regexp),
	}
}

// LoadRules replaces the engine's rules.
// Rules with malformed conditions are logged and dropped.
func (e *Engine) LoadRules(rules []domain.AutomationRule) {
	loaded := make([]domain.AutomationRule, 0, len(rules))
	for _, rule := range rules {
		if err := ValidateConditions(rule.Conditions); err != nil {
			e.logger.Warn("dropping rule with invalid conditions", "rule_id", rule.ID, "rule", rule.Name, "error", err)
			continue
		}
		loaded = append(loaded, rule)
	}
	slices.SortStableFunc(loaded, func(a, b domain.AutomationRule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	e.mu.Lock()
	e.rules = loaded
	e.mu.Unlock()

	e.logger.Debug("rules loaded", "count", len(loaded), "dropped", len(rules)-len(loaded))
}

// Rules returns the loaded rules in evaluation order.
func (e *Engine) Rules() []domain.AutomationRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.rules)
}

// Evaluate reports whether any enabled rule matches dc.
func (e *Engine) Evaluate(dc domain.DecisionalContext) bool {
	_, ok := e.Match(dc)
	return ok
}

// Match returns the highest-priority enabled rule matching dc.
func (e *Engine) Match(dc domain.DecisionalContext) (domain.AutomationRule, bool) {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	if len(rules) == 0 {
		return domain.AutomationRule{}, false
	}

	fields, err := contextFields(dc)
	if err != nil {
		e.logger.Error("encoding decisional context", "error", err)
		return domain.AutomationRule{}, false
	}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		matched, err := e.evalCondition(rule.Conditions, fields)
		if err != nil {
			e.logger.Warn("rule evaluation failed, skipping", "rule_id", rule.ID, "rule", rule.Name, "error", err)
			continue
		}
		if matched {
			e.logger.Debug("rule matched", "rule_id", rule.ID, "rule", rule.Name, "priority", rule.Priority)
			return rule, true
		}
	}
	return domain.AutomationRule{}, false
}

// contextFields flattens dc to its JSON object form so field paths follow
// the JSON names of the domain types.
func contextFields(dc domain.DecisionalContext) (map[string]any, error) {
	data, err := json.Marshal(dc)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if dc.EnergyState != nil {
		if state, ok := fields["energy_state"].(map[string]any); ok {
			state["surplus"] = float64(dc.EnergyState.Surplus())
		}
	}
	return fields, nil
}

func (e *Engine) regex(pattern string) (*regexp.Regexp, error) {
	e.reMu.Lock()
	defer e.reMu.Unlock()
	if re, ok := e.regexes[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: regex %q: %w", ErrInvalidCondition, pattern, err)
	}
	e.regexes[pattern] = re
	return re, nil
}
