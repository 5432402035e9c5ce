package domain

import "slices"

// OptimizationUnit groups what one optimisation loop works with: an energy
// source, the miners it drives, and the adapters it consults or notifies.
type OptimizationUnit struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description,omitempty"`
	Enabled                bool     `json:"enabled"`
	EnergySourceID         string   `json:"energy_source_id,omitempty"`
	TargetMinerIDs         []string `json:"target_miner_ids"`
	HomeForecastProviderID string   `json:"home_forecast_provider_id,omitempty"`
	PerformanceTrackerID   string   `json:"performance_tracker_id,omitempty"`
	NotifierIDs            []string `json:"notifier_ids"`
}

// AddTargetMiner adds id once.
func (u *OptimizationUnit) AddTargetMiner(id string) {
	if !slices.Contains(u.TargetMinerIDs, id) {
		u.TargetMinerIDs = append(u.TargetMinerIDs, id)
	}
}

// RemoveTargetMiner removes id if present.
func (u *OptimizationUnit) RemoveTargetMiner(id string) {
	u.TargetMinerIDs = slices.DeleteFunc(u.TargetMinerIDs, func(m string) bool { return m == id })
}

// AddNotifier adds id once.
func (u *OptimizationUnit) AddNotifier(id string) {
	if !slices.Contains(u.NotifierIDs, id) {
		u.NotifierIDs = append(u.NotifierIDs, id)
	}
}

// RemoveNotifier removes id if present.
func (u *OptimizationUnit) RemoveNotifier(id string) {
	u.NotifierIDs = slices.DeleteFunc(u.NotifierIDs, func(n string) bool { return n == id })
}

// Normalize drops empty and repeated references, keeping first-seen order.
func (u *OptimizationUnit) Normalize() {
	u.TargetMinerIDs = dedupe(u.TargetMinerIDs)
	u.NotifierIDs = dedupe(u.NotifierIDs)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
