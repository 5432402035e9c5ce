package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edge-mining-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.rateLimitMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.collector != nil && s.metricCfg.Enabled {
		r.Method(http.MethodGet, s.metricCfg.Path, s.collector.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// No auth required
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			read := r.With(s.requirePermission(auth.PermStateRead))
			operate := r.With(s.requirePermission(auth.PermMinerOperate))
			notify := r.With(s.requirePermission(auth.PermNotifierSend))
			manage := r.With(s.requirePermission(auth.PermAdapterManage))
			admin := r.With(s.requirePermission(auth.PermRegistryManage))

			// Energy sources
			read.Get("/energy-sources", s.handleListEnergySources)
			read.Get("/energy-sources/{id}", s.handleGetEnergySource)
			read.Get("/energy-sources/{id}/state", s.handleEnergyState)
			read.Get("/energy-sources/{id}/forecast", s.handleSolarForecast)
			manage.Put("/energy-sources/{id}", s.handlePutEnergySource)
			manage.Delete("/energy-sources/{id}", s.handleDeleteEnergySource)

			// Miners
			read.Get("/miners", s.handleListMiners)
			read.Get("/miners/{id}", s.handleGetMiner)
			read.Get("/miners/{id}/status", s.handleMinerStatus)
			operate.Post("/miners/{id}/start", s.handleStartMiner)
			operate.Post("/miners/{id}/stop", s.handleStopMiner)
			manage.Put("/miners/{id}", s.handlePutMiner)
			manage.Delete("/miners/{id}", s.handleDeleteMiner)

			// Notifiers
			notify.Post("/notifiers/broadcast", s.handleBroadcast)
			notify.Post("/notifiers/{id}/test", s.handleTestNotifier)

			// Forecasts and trackers
			read.Get("/home-forecasts/{id}", s.handleHomeForecast)
			read.Get("/performance-trackers/{id}/hashrate", s.handleTrackerHashRate)
			read.Get("/performance-trackers/{id}/rewards", s.handleTrackerRewards)
			operate.Post("/performance-trackers/{id}/rewards", s.handleRecordReward)

			// Optimization units
			read.Get("/units", s.handleListUnits)
			read.Get("/units/{id}", s.handleGetUnit)
			manage.Put("/units/{id}", s.handlePutUnit)
			manage.Delete("/units/{id}", s.handleDeleteUnit)

			// Rules
			read.Get("/rules", s.handleListRules)
			read.Post("/rules/evaluate", s.handleEvaluateRules)
			manage.Put("/rules/{id}", s.handlePutRule)
			manage.Delete("/rules/{id}", s.handleDeleteRule)

			// Adapter configuration
			manage.Get("/adapters/{category}", s.handleListAdapters)
			manage.Get("/adapters/{category}/{id}", s.handleGetAdapter)
			manage.Put("/adapters/{category}/{id}", s.handlePutAdapter)
			manage.Delete("/adapters/{category}/{id}", s.handleDeleteAdapter)

			manage.Get("/external-services", s.handleListServices)
			manage.Put("/external-services/{id}", s.handlePutService)
			manage.Delete("/external-services/{id}", s.handleDeleteService)
			manage.Post("/external-services/{id}/test", s.handleTestService)

			// Registry caches
			admin.Get("/system/status", s.handleSystemStatus)
			admin.Get("/audit", s.handleListAudit)
			admin.Get("/registry/stats", s.handleRegistryStats)
			admin.Get("/registry/factories", s.handleRegistryFactories)
			admin.Delete("/registry/adapters", s.handleClearAdapters)
			admin.Delete("/registry/adapters/{id}", s.handleRemoveAdapter)
			admin.Delete("/registry/services", s.handleClearServices)
			admin.Delete("/registry/services/{id}", s.handleRemoveService)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.registry.Stats()
	body := map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int64(s.uptime().Seconds()),
		"registry": map[string]int{
			"adapters":  stats.Adapters,
			"services":  stats.Services,
			"factories": stats.Factories,
		},
		"websocket_clients": s.hub.ClientCount(),
	}
	if s.mqtt != nil {
		body["mqtt_connected"] = s.mqtt.IsConnected()
	}
	writeJSON(w, http.StatusOK, body)
}
