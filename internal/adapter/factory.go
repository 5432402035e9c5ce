package adapter

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// BuildRequest carries everything a factory may need to construct an adapter.
//
// Service is set when the entity references an external service.
// EnergySource is set for energy monitors and forecast providers, Miner for
// miner controllers. Entity.Config may be nil; factories fall back to the
// payload defaults.
type BuildRequest struct {
	Entity       Entity
	Logger       Logger
	Service      domain.ExternalService
	EnergySource *domain.EnergySource
	Miner        *domain.Miner
}

// PayloadOf returns the request's payload as P. When the entity has no
// payload it returns def(), or an error if def is nil.
func PayloadOf[P Payload](req BuildRequest, def func() P) (P, error) {
	var zero P
	if req.Entity.Config == nil {
		if def == nil {
			return zero, fmt.Errorf("%w: %s/%s: payload is required",
				ErrInvalidPayload, req.Entity.Category, req.Entity.AdapterType)
		}
		return def(), nil
	}
	p, ok := req.Entity.Config.(P)
	if !ok {
		return zero, fmt.Errorf("%w: %s/%s: got %T, want %T",
			ErrInvalidPayload, req.Entity.Category, req.Entity.AdapterType, req.Entity.Config, zero)
	}
	return p, nil
}

// ServiceOf returns the request's external service as S.
func ServiceOf[S any](req BuildRequest) (S, error) {
	var zero S
	if req.Service == nil {
		return zero, fmt.Errorf("%w: %s/%s needs an external service",
			ErrUnresolvedDependency, req.Entity.Category, req.Entity.AdapterType)
	}
	s, ok := req.Service.(S)
	if !ok {
		return zero, fmt.Errorf("%w: %s/%s cannot use external service of type %T",
			ErrUnresolvedDependency, req.Entity.Category, req.Entity.AdapterType, req.Service)
	}
	return s, nil
}

// Factory constructs the runtime instance for one (category, adapter_type).
// The returned value must satisfy the category's capability port.
type Factory func(ctx context.Context, req BuildRequest) (any, error)

type factoryKey struct {
	category    Category
	adapterType AdapterType
}

// FactoryTable maps (category, adapter_type) to a Factory.
//
// It is populated once at startup and read concurrently afterwards.
type FactoryTable struct {
	mu        sync.RWMutex
	factories map[factoryKey]Factory
}

// NewFactoryTable creates an empty factory table.
func NewFactoryTable() *FactoryTable {
	return &FactoryTable{factories: make(map[factoryKey]Factory)}
}

// Register binds a factory to (category, adapterType).
// It panics on a nil factory or a duplicate registration, both of which
// are programming errors caught at startup.
func (t *FactoryTable) Register(category Category, adapterType AdapterType, f Factory) {
	if f == nil {
		panic(fmt.Sprintf("adapter: nil factory for %s/%s", category, adapterType))
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	key := factoryKey{category, adapterType}
	if _, exists := t.factories[key]; exists {
		panic(fmt.Sprintf("adapter: duplicate factory for %s/%s", category, adapterType))
	}
	t.factories[key] = f
}

// Lookup returns the factory for (category, adapterType).
func (t *FactoryTable) Lookup(category Category, adapterType AdapterType) (Factory, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.factories[factoryKey{category, adapterType}]
	return f, ok
}

// Types returns the adapter types registered for a category, sorted.
func (t *FactoryTable) Types(category Category) []AdapterType {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var types []AdapterType
	for k := range t.factories {
		if k.category == category {
			types = append(types, k.adapterType)
		}
	}
	slices.Sort(types)
	return types
}

// Len returns the number of registered factories.
func (t *FactoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.factories)
}
