package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/audit"
)

// redactedValue replaces secrets in configuration responses.
const redactedValue = "********"

// secretKeys are config keys whose values never leave the server.
var secretKeys = []string{"token", "password", "secret", "api_key"}

// entityView is an entity as returned by the API, with secrets masked.
type entityView struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Category          adapter.Category    `json:"category"`
	AdapterType       adapter.AdapterType `json:"adapter_type"`
	Config            map[string]any      `json:"config,omitempty"`
	ExternalServiceID string              `json:"external_service_id,omitempty"`
}

func redact(e *adapter.Entity) entityView {
	v := entityView{
		ID:                e.ID,
		Name:              e.Name,
		Category:          e.Category,
		AdapterType:       e.AdapterType,
		ExternalServiceID: e.ExternalServiceID,
	}
	if e.Config == nil {
		return v
	}
	data, err := json.Marshal(e.Config)
	if err != nil {
		return v
	}
	if err := json.Unmarshal(data, &v.Config); err != nil {
		return v
	}
	for k, val := range v.Config {
		if s, ok := val.(string); ok && s != "" && isSecretKey(k) {
			v.Config[k] = redactedValue
		}
	}
	return v
}

func redactAll(entities []*adapter.Entity) []entityView {
	views := make([]entityView, 0, len(entities))
	for _, e := range entities {
		views = append(views, redact(e))
	}
	return views
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// handleListServices returns all external service configurations.
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	entities, err := s.stores.Entity(adapter.CategoryExternalService).List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"external_services": redactAll(entities),
		"count":             len(entities),
	})
}

// handlePutService creates or replaces an external service. The cached
// service and every cached adapter built on it are dropped.
func (s *Server) handlePutService(w http.ResponseWriter, r *http.Request) {
	var req entityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := req.entity(adapter.CategoryExternalService, chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.stores.Entity(adapter.CategoryExternalService).Save(r.Context(), e); err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.invalidateService(r.Context(), e.ID)
	s.publishEvent(ChannelAdapterUpdated, map[string]any{
		"category": string(adapter.CategoryExternalService), "id": e.ID, "action": "saved",
	})
	s.recordAudit(r, audit.ActionPut, string(adapter.CategoryExternalService), e.ID, map[string]any{"adapter_type": string(e.AdapterType)})
	writeJSON(w, http.StatusOK, redact(e))
}

// handleDeleteService removes an external service. Adapters that still
// reference it fail to resolve until they are reconfigured.
func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.stores.Entity(adapter.CategoryExternalService).Delete(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.invalidateService(r.Context(), id)
	s.publishEvent(ChannelAdapterUpdated, map[string]any{
		"category": string(adapter.CategoryExternalService), "id": id, "action": "deleted",
	})
	s.recordAudit(r, audit.ActionDelete, string(adapter.CategoryExternalService), id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleTestService resolves an external service, which connects it.
func (s *Server) handleTestService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := resultValue(s, w, r, s.registry.ExternalService(r.Context(), id), "external service"); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"service_id": id, "connected": true})
}

// invalidateService drops a cached service and the cached adapters that
// depend on it.
func (s *Server) invalidateService(ctx context.Context, id string) {
	if s.registry.RemoveService(id) {
		s.publishEvent(ChannelRegistryInvalidated, map[string]any{
			"cache": "services", "id": id, "entries": 1,
		})
	}

	var dependents []string
	for _, category := range adapter.AdapterCategories {
		entities, err := s.stores.Entity(category).ListByService(ctx, id)
		if err != nil {
			s.logger.Warn("listing adapters of service", "service_id", id, "category", string(category), "error", err)
			continue
		}
		for _, e := range entities {
			dependents = append(dependents, e.ID)
		}
	}
	s.invalidateAdapters(dependents...)
}
