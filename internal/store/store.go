package store

import (
	"database/sql"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
)

// Stores bundles every store over one database handle.
type Stores struct {
	Entities      map[adapter.Category]*EntityStore
	EnergySources *EnergySourceStore
	Miners        *MinerStore
	Rules         *RuleStore
	Units         *UnitStore
}

// New creates every store on db.
func New(db *sql.DB) *Stores {
	s := &Stores{
		Entities:      make(map[adapter.Category]*EntityStore, len(categoryTables)),
		EnergySources: NewEnergySourceStore(db),
		Miners:        NewMinerStore(db),
		Rules:         NewRuleStore(db),
		Units:         NewUnitStore(db),
	}
	for category, table := range categoryTables {
		s.Entities[category] = &EntityStore{db: db, category: category, table: table}
	}
	return s
}

// Entity returns the store for category, or nil for an unknown category.
func (s *Stores) Entity(category adapter.Category) *EntityStore {
	return s.Entities[category]
}

// Repositories exposes the entity stores in the shape the registry consumes.
func (s *Stores) Repositories() adapter.Repositories {
	return adapter.Repositories{
		EnergyMonitors:        s.Entities[adapter.CategoryEnergyMonitor],
		MinerControllers:      s.Entities[adapter.CategoryMinerController],
		Notifiers:             s.Entities[adapter.CategoryNotifier],
		ForecastProviders:     s.Entities[adapter.CategoryForecastProvider],
		HomeForecastProviders: s.Entities[adapter.CategoryHomeForecastProvider],
		PerformanceTrackers:   s.Entities[adapter.CategoryPerformanceTracker],
		ExternalServices:      s.Entities[adapter.CategoryExternalService],
	}
}
