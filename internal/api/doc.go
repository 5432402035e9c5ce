// Package api provides the HTTP REST API and WebSocket server for Edge Mining Core.
//
// It exposes the adapter registry to operators: live readings and commands
// routed through registry-built adapters, configuration of adapter and
// external service entities with cache invalidation, rule evaluation, and
// registry statistics.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
