package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edge-mining-core/internal/audit"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/store"
)

// handleListEnergySources returns all energy sources.
func (s *Server) handleListEnergySources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.stores.EnergySources.List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"energy_sources": sources, "count": len(sources)})
}

// handleGetEnergySource returns a single energy source by ID.
func (s *Server) handleGetEnergySource(w http.ResponseWriter, r *http.Request) {
	src, err := s.stores.EnergySources.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

// handleEnergyState reads the current state through the source's energy monitor.
func (s *Server) handleEnergyState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	src, err := s.stores.EnergySources.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	monitor, ok := resultValue(s, w, r, s.registry.EnergyMonitor(ctx, src), "energy monitor")
	if !ok {
		return
	}
	state, err := monitor.CurrentEnergyState(ctx)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"energy_source_id": src.ID,
		"state":            state,
		"surplus":          state.Surplus(),
	})
}

// handleSolarForecast returns the forecast of the source's forecast provider.
func (s *Server) handleSolarForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	src, err := s.stores.EnergySources.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	provider, ok := resultValue(s, w, r, s.registry.ForecastProvider(ctx, src), "forecast provider")
	if !ok {
		return
	}
	forecast, err := provider.SolarForecast(ctx)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"energy_source_id": src.ID,
		"forecast":         forecast,
	})
}

// handlePutEnergySource creates or replaces an energy source.
//
// Monitors and forecast providers are built with the source bound in, so
// the cached ones referenced before and after the change are dropped.
func (s *Server) handlePutEnergySource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var src domain.EnergySource
	if !decodeBody(w, r, &src) {
		return
	}
	src.ID = id

	prev, err := s.stores.EnergySources.Get(ctx, id)
	if err != nil && !errors.Is(err, store.ErrEnergySourceNotFound) {
		s.writeErr(w, r, err)
		return
	}
	if err := s.stores.EnergySources.Save(ctx, &src); err != nil {
		s.writeErr(w, r, err)
		return
	}

	stale := []string{src.EnergyMonitorID, src.ForecastProviderID}
	if prev != nil {
		stale = append(stale, prev.EnergyMonitorID, prev.ForecastProviderID)
	}
	s.invalidateAdapters(stale...)
	s.publishEvent(ChannelAdapterUpdated, map[string]any{
		"category": "energy_source", "id": src.ID, "action": "saved",
	})
	s.recordAudit(r, audit.ActionPut, "energy_source", src.ID, map[string]any{
		"energy_monitor_id": src.EnergyMonitorID, "forecast_provider_id": src.ForecastProviderID,
	})

	writeJSON(w, http.StatusOK, src)
}

// handleDeleteEnergySource removes an energy source.
func (s *Server) handleDeleteEnergySource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	src, err := s.stores.EnergySources.Get(ctx, id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.stores.EnergySources.Delete(ctx, id); err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.invalidateAdapters(src.EnergyMonitorID, src.ForecastProviderID)
	s.publishEvent(ChannelAdapterUpdated, map[string]any{
		"category": "energy_source", "id": id, "action": "deleted",
	})
	s.recordAudit(r, audit.ActionDelete, "energy_source", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
