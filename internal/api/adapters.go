package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/audit"
)

// entityRequest is the body of PUT /adapters/{category}/{id} and
// PUT /external-services/{id}. Config is decoded against adapter_type.
type entityRequest struct {
	Name              string              `json:"name"`
	AdapterType       adapter.AdapterType `json:"adapter_type"`
	Config            json.RawMessage     `json:"config,omitempty"`
	ExternalServiceID string              `json:"external_service_id,omitempty"`
}

// entity decodes the request into an adapter entity of category.
func (req entityRequest) entity(category adapter.Category, id string) (*adapter.Entity, error) {
	payload, err := adapter.DecodePayload(category, req.AdapterType, req.Config)
	if err != nil {
		return nil, err
	}
	return &adapter.Entity{
		ID:                id,
		Name:              req.Name,
		Category:          category,
		AdapterType:       req.AdapterType,
		Config:            payload,
		ExternalServiceID: req.ExternalServiceID,
	}, nil
}

// adapterCategory reads {category} and rejects unknown values and
// external_service, which has its own endpoints.
func adapterCategory(w http.ResponseWriter, r *http.Request) (adapter.Category, bool) {
	category := adapter.Category(chi.URLParam(r, "category"))
	if !slices.Contains(adapter.AdapterCategories, category) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("%v: %q", adapter.ErrInvalidCategory, category))
		return "", false
	}
	return category, true
}

// allCategories returns the adapter categories followed by external_service.
func allCategories() []adapter.Category {
	return append(slices.Clone(adapter.AdapterCategories), adapter.CategoryExternalService)
}

// handleListAdapters returns the configured adapters of one category.
func (s *Server) handleListAdapters(w http.ResponseWriter, r *http.Request) {
	category, ok := adapterCategory(w, r)
	if !ok {
		return
	}
	entities, err := s.stores.Entity(category).List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"adapters": redactAll(entities),
		"count":    len(entities),
	})
}

// handleGetAdapter returns one adapter configuration.
func (s *Server) handleGetAdapter(w http.ResponseWriter, r *http.Request) {
	category, ok := adapterCategory(w, r)
	if !ok {
		return
	}
	e, err := s.stores.Entity(category).GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(e))
}

// handlePutAdapter creates or replaces an adapter configuration and drops
// any cached instance, so the next request rebuilds it.
func (s *Server) handlePutAdapter(w http.ResponseWriter, r *http.Request) {
	category, ok := adapterCategory(w, r)
	if !ok {
		return
	}
	var req entityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := req.entity(category, chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.stores.Entity(category).Save(r.Context(), e); err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.invalidateAdapters(e.ID)
	s.publishEvent(ChannelAdapterUpdated, map[string]any{
		"category": string(category), "id": e.ID, "action": "saved",
	})
	s.recordAudit(r, audit.ActionPut, string(category), e.ID, map[string]any{"adapter_type": string(e.AdapterType)})
	writeJSON(w, http.StatusOK, redact(e))
}

// handleDeleteAdapter removes an adapter configuration.
func (s *Server) handleDeleteAdapter(w http.ResponseWriter, r *http.Request) {
	category, ok := adapterCategory(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.stores.Entity(category).Delete(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.invalidateAdapters(id)
	s.publishEvent(ChannelAdapterUpdated, map[string]any{
		"category": string(category), "id": id, "action": "deleted",
	})
	s.recordAudit(r, audit.ActionDelete, string(category), id, nil)
	w.WriteHeader(http.StatusNoContent)
}
