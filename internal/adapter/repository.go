package adapter

import "context"

// EntityRepository is the read side of one category's configuration store.
//
// GetByID must return an error satisfying errors.Is(err, ErrNotFound) when
// the entity does not exist; any other error is reported as ErrRepository.
type EntityRepository interface {
	GetByID(ctx context.Context, id string) (*Entity, error)
	List(ctx context.Context) ([]*Entity, error)
}

// Repositories groups the configuration stores the Registry reads from.
// A nil repository behaves as an empty store.
type Repositories struct {
	EnergyMonitors        EntityRepository
	MinerControllers      EntityRepository
	Notifiers             EntityRepository
	ForecastProviders     EntityRepository
	HomeForecastProviders EntityRepository
	PerformanceTrackers   EntityRepository
	ExternalServices      EntityRepository
}

// ForCategory returns the repository for a category, or nil.
func (r Repositories) ForCategory(c Category) EntityRepository {
	switch c {
	case CategoryEnergyMonitor:
		return r.EnergyMonitors
	case CategoryMinerController:
		return r.MinerControllers
	case CategoryNotifier:
		return r.Notifiers
	case CategoryForecastProvider:
		return r.ForecastProviders
	case CategoryHomeForecastProvider:
		return r.HomeForecastProviders
	case CategoryPerformanceTracker:
		return r.PerformanceTrackers
	case CategoryExternalService:
		return r.ExternalServices
	default:
		return nil
	}
}
