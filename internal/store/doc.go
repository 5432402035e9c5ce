// Package store persists the configuration the adapter registry reads:
// adapter entities per category, external services, energy sources, miners
// and automation rules.
//
// Every store works on the shared SQLite handle from the database package.
// Adapter entity stores satisfy adapter.EntityRepository, so a Stores value
// plugs straight into adapter.NewRegistry:
//
//	stores := store.New(db.DB)
//	registry := adapter.NewRegistry(stores.Repositories(), factories, opts)
//
// Payloads are stored as JSON and decoded on read with adapter.DecodePayload.
// A row whose adapter_type is no longer supported still loads, with a nil
// Config; the registry then reports it as unsupported. A row whose payload no
// longer validates fails the read with adapter.ErrInvalidPayload.
package store
