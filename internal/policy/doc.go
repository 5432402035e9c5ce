// Package policy implements the rule engine that evaluates automation rules
// against a DecisionalContext.
//
// A rule's Conditions is either a single comparison:
//
//	{"field": "energy_state.production", "operator": "gt", "value": 1500}
//
// or a logical group over nested conditions:
//
//	{"all_of": [...]}  {"any_of": [...]}  {"not": {...}}
//
// Fields are dot paths over the JSON form of the context, for example
// "energy_state.battery.state_of_charge" or "miner.status". The derived field
// "energy_state.surplus" is production minus household load.
//
// Rules are tried in descending priority; disabled rules are skipped and the
// first match wins. A rule whose evaluation errors is logged and skipped.
package policy
