// Package adapter provides the Adapter Registry: it turns persisted
// configuration entities into live capability ports and keeps them for reuse.
//
// # Architecture
//
//	caller ──► Registry.EnergyMonitor(ctx, source)
//	              │
//	              ├─ 1. repository lookup (absent → empty result)
//	              ├─ 2. instance cache (hit + port satisfied → return)
//	              ├─ 3. external service via the service cache
//	              ├─ 4. FactoryTable.Lookup(category, adapter_type)
//	              └─ 5. factory → store → return
//
// Adapters of every category share one instance cache keyed by entity id.
// External services live in a separate service cache, so two adapters that
// reference the same service id share one connection.
//
// # Results
//
// Every getter returns a Result:
//
//	res := reg.Notifier(ctx, "n1")
//	switch {
//	case res.OK():
//	    _ = res.Value.SendNotification(ctx, "title", "body")
//	case res.IsEmpty():
//	    // nothing configured
//	case res.Failed():
//	    // configured but unavailable; errors.Is(res.Err, adapter.ErrConstructionFailed) ...
//	}
//
// # Concurrency
//
// Concurrent first-time requests for the same id run the factory once and
// all observe the same instance or the same failure. Factories run outside
// the cache lock and receive a context detached from caller cancellation;
// bounding slow network setup is the factory's job.
//
// Invalidation (RemoveAdapter, ClearAllAdapters, RemoveService,
// ClearAllServices) only drops entries. A construction still running when
// its entry is invalidated completes for the callers already waiting but is
// not stored.
//
// # Payloads
//
// DecodePayload validates the adapter-specific JSON config at the boundary,
// so factories only ever see a payload matching the entity's adapter_type.
package adapter
