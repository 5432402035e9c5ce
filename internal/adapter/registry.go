package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/policy"
)

// Options tunes the Registry.
type Options struct {
	// FailureTTL enables negative caching of construction failures.
	// Zero disables it: every call after a failure retries construction.
	FailureTTL time.Duration

	// FailureCacheSize bounds the number of remembered failures per cache.
	FailureCacheSize int
}

// Registry turns configuration entities into live capability ports.
//
// Instances are built lazily on first request, memoised by entity id and
// shared by every caller until invalidated. Adapters of all categories share
// one instance cache; external services have their own so that every
// dependent adapter reuses the same connection.
//
// All public methods are thread-safe.
type Registry struct {
	repos     Repositories
	factories *FactoryTable

	adapters *instanceCache
	services *instanceCache

	logger  Logger
	metrics Metrics
}

// NewRegistry creates a registry over the given repositories and factories.
func NewRegistry(repos Repositories, factories *FactoryTable, opts Options) *Registry {
	if factories == nil {
		factories = NewFactoryTable()
	}
	return &Registry{
		repos:     repos,
		factories: factories,
		adapters:  newInstanceCache(opts.FailureTTL, opts.FailureCacheSize),
		services:  newInstanceCache(opts.FailureTTL, opts.FailureCacheSize),
		logger:    noopLogger{},
		metrics:   noopMetrics{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetMetrics sets the metrics sink for the registry.
func (r *Registry) SetMetrics(m Metrics) {
	r.metrics = m
}

// =============================================================================
// Getters
// =============================================================================

// EnergyMonitor returns the energy monitor referenced by source.
// An empty result means the source has no monitor configured.
func (r *Registry) EnergyMonitor(ctx context.Context, source *domain.EnergySource) Result[domain.EnergyMonitor] {
	if source == nil {
		return missingContext[domain.EnergyMonitor](r, CategoryEnergyMonitor, "energy source")
	}
	if source.EnergyMonitorID == "" {
		r.logger.Warn("energy source has no energy monitor configured",
			"energy_source_id", source.ID, "energy_source", source.Name)
		return emptyResult[domain.EnergyMonitor](fmt.Errorf("%w: energy source %q has no energy monitor", ErrNotFound, source.ID))
	}
	return resolve[domain.EnergyMonitor](ctx, r, CategoryEnergyMonitor, source.EnergyMonitorID,
		BuildRequest{EnergySource: source})
}

// MinerController returns the controller referenced by miner.
func (r *Registry) MinerController(ctx context.Context, miner *domain.Miner) Result[domain.MinerController] {
	if miner == nil {
		return missingContext[domain.MinerController](r, CategoryMinerController, "miner")
	}
	if miner.ControllerID == "" {
		r.logger.Warn("miner has no controller configured", "miner_id", miner.ID, "miner", miner.Name)
		return emptyResult[domain.MinerController](fmt.Errorf("%w: miner %q has no controller", ErrNotFound, miner.ID))
	}
	return resolve[domain.MinerController](ctx, r, CategoryMinerController, miner.ControllerID,
		BuildRequest{Miner: miner})
}

// Notifier returns the notifier with the given id.
func (r *Registry) Notifier(ctx context.Context, id string) Result[domain.Notifier] {
	return resolve[domain.Notifier](ctx, r, CategoryNotifier, id, BuildRequest{})
}

// Notifiers returns the notifiers that could be provided for ids.
// Each id that is missing or fails is logged and skipped.
func (r *Registry) Notifiers(ctx context.Context, ids []string) []domain.Notifier {
	notifiers := make([]domain.Notifier, 0, len(ids))
	for _, id := range ids {
		res := r.Notifier(ctx, id)
		if res.OK() {
			notifiers = append(notifiers, res.Value)
			continue
		}
		r.logger.Warn("skipping notifier", "notifier_id", id, "status", res.Status.String(), "error", res.Err)
	}
	return notifiers
}

// AllNotifiers returns every configured notifier that could be provided.
func (r *Registry) AllNotifiers(ctx context.Context) []domain.Notifier {
	repo := r.repos.Notifiers
	if repo == nil {
		return nil
	}
	entities, err := repo.List(ctx)
	if err != nil {
		r.logger.Error("listing notifiers", "error", err)
		return nil
	}
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return r.Notifiers(ctx, ids)
}

// ForecastProvider returns the solar forecast provider referenced by source.
func (r *Registry) ForecastProvider(ctx context.Context, source *domain.EnergySource) Result[domain.ForecastProvider] {
	if source == nil {
		return missingContext[domain.ForecastProvider](r, CategoryForecastProvider, "energy source")
	}
	if source.ForecastProviderID == "" {
		r.logger.Warn("energy source has no forecast provider configured",
			"energy_source_id", source.ID, "energy_source", source.Name)
		return emptyResult[domain.ForecastProvider](fmt.Errorf("%w: energy source %q has no forecast provider", ErrNotFound, source.ID))
	}
	return resolve[domain.ForecastProvider](ctx, r, CategoryForecastProvider, source.ForecastProviderID,
		BuildRequest{EnergySource: source})
}

// HomeLoadForecastProvider returns the home-load forecast provider with the given id.
func (r *Registry) HomeLoadForecastProvider(ctx context.Context, id string) Result[domain.HomeLoadForecastProvider] {
	return resolve[domain.HomeLoadForecastProvider](ctx, r, CategoryHomeForecastProvider, id, BuildRequest{})
}

// MiningPerformanceTracker returns the performance tracker with the given id.
func (r *Registry) MiningPerformanceTracker(ctx context.Context, id string) Result[domain.MiningPerformanceTracker] {
	return resolve[domain.MiningPerformanceTracker](ctx, r, CategoryPerformanceTracker, id, BuildRequest{})
}

// ExternalService returns the shared external service with the given id.
// Service factories are expected to connect before returning.
func (r *Registry) ExternalService(ctx context.Context, id string) Result[domain.ExternalService] {
	return resolve[domain.ExternalService](ctx, r, CategoryExternalService, id, BuildRequest{})
}

// RuleEngine returns a fresh rule engine. Engines are never cached.
func (r *Registry) RuleEngine() domain.RuleEngine {
	return policy.NewEngine(r.logger)
}

// =============================================================================
// Invalidation
// =============================================================================

// ClearAllAdapters drops every cached adapter of every category and returns
// how many were cached. Nothing is rebuilt until the next request.
func (r *Registry) ClearAllAdapters() int {
	n := r.adapters.clear()
	r.metrics.Invalidation(cacheAdapters, n)
	r.logger.Info("adapter cache cleared", "entries", n)
	return n
}

// RemoveAdapter drops one cached adapter and reports whether it was cached.
func (r *Registry) RemoveAdapter(id string) bool {
	if !r.adapters.remove(id) {
		r.logger.Warn("adapter not in cache", "adapter_id", id)
		return false
	}
	r.metrics.Invalidation(cacheAdapters, 1)
	r.logger.Info("adapter removed from cache", "adapter_id", id)
	return true
}

// ClearAllServices drops every cached external service and returns how many
// were cached. Services are not disconnected: adapters built on them may
// still hold a reference. Use Shutdown at process exit.
func (r *Registry) ClearAllServices() int {
	n := r.services.clear()
	r.metrics.Invalidation(cacheServices, n)
	r.logger.Info("service cache cleared", "entries", n)
	return n
}

// RemoveService drops one cached external service and reports whether it was cached.
func (r *Registry) RemoveService(id string) bool {
	if !r.services.remove(id) {
		r.logger.Warn("external service not in cache", "service_id", id)
		return false
	}
	r.metrics.Invalidation(cacheServices, 1)
	r.logger.Info("external service removed from cache", "service_id", id)
	return true
}

// Shutdown empties both caches and disconnects every cached external service.
// Disconnect errors are joined; all services are attempted.
func (r *Registry) Shutdown(ctx context.Context) error {
	adapters := r.adapters.clear()
	services := r.services.drain()
	r.metrics.Invalidation(cacheAdapters, adapters)
	r.metrics.Invalidation(cacheServices, len(services))

	var errs []error
	for id, v := range services {
		svc, ok := v.(domain.ExternalService)
		if !ok {
			continue
		}
		if err := svc.Disconnect(ctx); err != nil {
			r.logger.Warn("disconnecting external service", "service_id", id, "error", err)
			errs = append(errs, fmt.Errorf("service %q: %w", id, err))
		}
	}
	r.logger.Info("registry shut down", "adapters", adapters, "services", len(services))
	return errors.Join(errs...)
}

// Stats is a point-in-time view of the registry caches.
type Stats struct {
	Adapters           int      `json:"adapters"`
	Services           int      `json:"services"`
	AdapterIDs         []string `json:"adapter_ids"`
	ServiceIDs         []string `json:"service_ids"`
	RememberedFailures int      `json:"remembered_failures"`
	Factories          int      `json:"factories"`
}

// Stats returns cache sizes and cached ids.
func (r *Registry) Stats() Stats {
	adapterIDs := r.adapters.ids()
	serviceIDs := r.services.ids()
	return Stats{
		Adapters:           len(adapterIDs),
		Services:           len(serviceIDs),
		AdapterIDs:         adapterIDs,
		ServiceIDs:         serviceIDs,
		RememberedFailures: r.adapters.failureCount() + r.services.failureCount(),
		Factories:          r.factories.Len(),
	}
}

// =============================================================================
// Resolution
// =============================================================================

func missingContext[T any](r *Registry, category Category, what string) Result[T] {
	r.logger.Error("cannot resolve adapter without context", "category", string(category), "missing", what)
	return failedResult[T](fmt.Errorf("%w: %s needs a %s", ErrUnresolvedDependency, category, what))
}

// resolve is the single getter algorithm shared by every category:
// repository lookup, cache read with port check, dependency resolution,
// factory selection, construction and caching.
func resolve[T any](ctx context.Context, r *Registry, category Category, id string, req BuildRequest) Result[T] {
	cache := r.adapters
	if category == CategoryExternalService {
		cache = r.services
	}

	entity, err := r.lookup(ctx, category, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.Warn("adapter entity not found", "category", string(category), "id", id)
			return emptyResult[T](err)
		}
		r.logger.Error("adapter entity lookup failed", "category", string(category), "id", id, "error", err)
		return failedResult[T](err)
	}

	if v, ok := cache.get(id); ok {
		if inst, ok := v.(T); ok {
			r.metrics.CacheHit(category)
			return okResult(inst)
		}
		r.metrics.TypeGuardViolation(category)
		r.logger.Warn("cached instance does not satisfy port, rebuilding",
			"category", string(category), "id", id, "cached_type", fmt.Sprintf("%T", v))
	}
	r.metrics.CacheMiss(category)

	if err := cache.recentFailure(id); err != nil {
		return failedResult[T](err)
	}

	accept := func(v any) bool {
		_, ok := v.(T)
		return ok
	}

	v, err := cache.do(id, func() (any, error) {
		// The flight is shared; one caller's cancellation must not fail the rest.
		ctx := context.WithoutCancel(ctx)
		st := cache.stamp(id)
		if v, ok := cache.get(id); ok && accept(v) {
			return v, nil
		}

		inst, err := r.construct(ctx, entity, req, accept)
		if err != nil {
			if !errors.Is(err, ErrUnresolvedDependency) {
				cache.rememberFailure(id, err, st)
			}
			return nil, err
		}
		if !cache.storeIfCurrent(id, inst, st) {
			r.logger.Debug("cache invalidated during construction, instance not stored",
				"category", string(category), "id", id)
		}
		return inst, nil
	})
	if err != nil {
		return failedResult[T](err)
	}

	inst, ok := v.(T)
	if !ok {
		// Another category's flight for the same id won the race.
		return failedResult[T](fmt.Errorf("%w: %s %q: id shared with %T", ErrConstructionFailed, category, id, v))
	}
	return okResult(inst)
}

// lookup reads the entity from its category repository.
// The returned error wraps ErrNotFound or ErrRepository.
func (r *Registry) lookup(ctx context.Context, category Category, id string) (*Entity, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s with empty id", ErrNotFound, category)
	}
	repo := r.repos.ForCategory(category)
	if repo == nil {
		return nil, fmt.Errorf("%w: %s %q (no repository)", ErrNotFound, category, id)
	}
	entity, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s %q", ErrNotFound, category, id)
		}
		return nil, fmt.Errorf("%w: %s %q: %w", ErrRepository, category, id, err)
	}
	if entity == nil {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, category, id)
	}
	e := *entity
	e.Category = category
	return &e, nil
}

// construct builds one instance. Failures are logged here, once per flight.
func (r *Registry) construct(ctx context.Context, entity *Entity, req BuildRequest, accept func(any) bool) (any, error) {
	log := entityLogger{base: r.logger, attrs: []any{
		"category", string(entity.Category),
		"id", entity.ID,
		"name", entity.Name,
		"adapter_type", string(entity.AdapterType),
	}}

	if entity.Category != CategoryExternalService && entity.HasExternalService() {
		svc := r.ExternalService(ctx, entity.ExternalServiceID)
		if !svc.OK() {
			err := fmt.Errorf("%w: %s %q requires external service %q: %v",
				ErrUnresolvedDependency, entity.Category, entity.Name, entity.ExternalServiceID, svc.Err)
			log.Error("external service unavailable", "service_id", entity.ExternalServiceID, "error", svc.Err)
			return nil, err
		}
		req.Service = svc.Value
	}

	factory, ok := r.factories.Lookup(entity.Category, entity.AdapterType)
	if !ok {
		err := fmt.Errorf("%w: %s/%s (entity %q)", ErrUnsupportedAdapterType, entity.Category, entity.AdapterType, entity.ID)
		log.Error("unsupported adapter type")
		r.metrics.Construction(entity.Category, entity.AdapterType, err)
		return nil, err
	}

	req.Entity = *entity
	req.Logger = log
	inst, err := callFactory(ctx, factory, req)
	if err == nil && (inst == nil || !accept(inst)) {
		err = fmt.Errorf("factory returned %T, which does not implement the %s port", inst, entity.Category)
	}
	r.metrics.Construction(entity.Category, entity.AdapterType, err)
	if err != nil {
		log.Error("adapter construction failed", "error", err)
		return nil, fmt.Errorf("%w: %s %q (%s): %w", ErrConstructionFailed, entity.Category, entity.ID, entity.AdapterType, err)
	}

	log.Info("adapter constructed")
	return inst, nil
}

// callFactory runs f detached from caller cancellation and turns a panic
// into an error.
func callFactory(ctx context.Context, f Factory, req BuildRequest) (inst any, err error) {
	defer func() {
		if p := recover(); p != nil {
			inst = nil
			err = fmt.Errorf("factory panicked: %v", p)
		}
	}()
	return f(context.WithoutCancel(ctx), req)
}

// entityLogger prefixes every record with the entity's identity.
type entityLogger struct {
	base  Logger
	attrs []any
}

func (l entityLogger) with(args []any) []any {
	out := make([]any, 0, len(l.attrs)+len(args))
	out = append(out, l.attrs...)
	return append(out, args...)
}

func (l entityLogger) Debug(msg string, args ...any) { l.base.Debug(msg, l.with(args)...) }
func (l entityLogger) Info(msg string, args ...any)  { l.base.Info(msg, l.with(args)...) }
func (l entityLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, l.with(args)...) }
func (l entityLogger) Error(msg string, args ...any) { l.base.Error(msg, l.with(args)...) }
