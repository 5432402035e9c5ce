package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edge-mining-core/internal/audit"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// handleListUnits returns optimization units. ?enabled=true keeps only
// enabled ones.
func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.stores.Units.List(r.Context(), r.URL.Query().Get("enabled") == "true")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": units, "count": len(units)})
}

// handleGetUnit returns a single optimization unit by ID.
func (s *Server) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	u, err := s.stores.Units.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handlePutUnit creates or replaces an optimization unit. References are
// stored as given and resolved when the unit is evaluated.
func (s *Server) handlePutUnit(w http.ResponseWriter, r *http.Request) {
	var u domain.OptimizationUnit
	if !decodeBody(w, r, &u) {
		return
	}
	u.ID = chi.URLParam(r, "id")
	if err := s.stores.Units.Save(r.Context(), &u); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.recordAudit(r, audit.ActionPut, "optimization_unit", u.ID, map[string]any{
		"enabled": u.Enabled, "energy_source_id": u.EnergySourceID, "target_miner_ids": u.TargetMinerIDs,
	})
	writeJSON(w, http.StatusOK, u)
}

// handleDeleteUnit removes an optimization unit.
func (s *Server) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.stores.Units.Delete(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.recordAudit(r, audit.ActionDelete, "optimization_unit", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
