package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/audit"
)

// handleRegistryStats returns cache sizes and cached ids.
func (s *Server) handleRegistryStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

// handleRegistryFactories lists the adapter types that can be built, per category.
func (s *Server) handleRegistryFactories(w http.ResponseWriter, _ *http.Request) {
	if s.factories == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotConfigured, "factory table not available")
		return
	}
	types := make(map[adapter.Category][]adapter.AdapterType)
	for _, category := range allCategories() {
		if t := s.factories.Types(category); len(t) > 0 {
			types[category] = t
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"factories": types,
		"count":     s.factories.Len(),
	})
}

// handleClearAdapters empties the adapter cache.
func (s *Server) handleClearAdapters(w http.ResponseWriter, r *http.Request) {
	n := s.registry.ClearAllAdapters()
	s.publishEvent(ChannelRegistryInvalidated, map[string]any{"cache": "adapters", "entries": n})
	s.recordAudit(r, audit.ActionInvalidate, "registry", "adapters", map[string]any{"entries": n})
	writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
}

// handleRemoveAdapter drops one cached adapter.
func (s *Server) handleRemoveAdapter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed := s.invalidateAdapters(id) > 0
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "removed": removed})
}

// handleClearServices empties the external service cache.
func (s *Server) handleClearServices(w http.ResponseWriter, r *http.Request) {
	n := s.registry.ClearAllServices()
	s.publishEvent(ChannelRegistryInvalidated, map[string]any{"cache": "services", "entries": n})
	s.recordAudit(r, audit.ActionInvalidate, "registry", "services", map[string]any{"entries": n})
	writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
}

// handleRemoveService drops one cached external service.
func (s *Server) handleRemoveService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed := s.registry.RemoveService(id)
	if removed {
		s.publishEvent(ChannelRegistryInvalidated, map[string]any{"cache": "services", "id": id, "entries": 1})
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "removed": removed})
}
