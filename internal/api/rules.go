package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edge-mining-core/internal/audit"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// ruleMatcher is implemented by engines that can name the rule that matched.
type ruleMatcher interface {
	Match(dc domain.DecisionalContext) (domain.AutomationRule, bool)
}

// handleListRules returns all stored automation rules.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.stores.Rules.List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules, "count": len(rules)})
}

// handlePutRule creates or replaces a rule. Conditions are validated on save.
func (s *Server) handlePutRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.AutomationRule
	if !decodeBody(w, r, &rule) {
		return
	}
	rule.ID = chi.URLParam(r, "id")
	if err := s.stores.Rules.Save(r.Context(), &rule); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.recordAudit(r, audit.ActionPut, "rule", rule.ID, map[string]any{"enabled": rule.Enabled, "priority": rule.Priority})
	writeJSON(w, http.StatusOK, rule)
}

// handleDeleteRule removes a rule.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.stores.Rules.Delete(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.recordAudit(r, audit.ActionDelete, "rule", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// evaluateRequest is the body of POST /rules/evaluate. Every reference is
// optional; the decisional context holds whatever could be gathered.
// UnitID fills the references left empty from an optimization unit; its
// first target miner stands in for MinerID.
type evaluateRequest struct {
	UnitID         string `json:"unit_id,omitempty"`
	EnergySourceID string `json:"energy_source_id,omitempty"`
	MinerID        string `json:"miner_id,omitempty"`
	HomeForecastID string `json:"home_forecast_id,omitempty"`
	TrackerID      string `json:"tracker_id,omitempty"`
	HoursAhead     int    `json:"hours_ahead,omitempty"`
}

// handleEvaluateRules builds a decisional context from live adapters and
// runs the stored rules against it.
//
// A referenced energy source or miner that does not exist is a 404. The
// energy state is required when an energy source is given; forecasts and
// tracker data are best effort and omitted when unavailable.
func (s *Server) handleEvaluateRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req evaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.HoursAhead <= 0 {
		req.HoursAhead = domain.DefaultHoursAhead
	}
	if req.UnitID != "" {
		unit, err := s.stores.Units.Get(ctx, req.UnitID)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		req.applyUnit(unit)
	}

	dc := domain.DecisionalContext{Timestamp: time.Now().UTC()}
	var skipped []string

	if req.EnergySourceID != "" {
		src, err := s.stores.EnergySources.Get(ctx, req.EnergySourceID)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		dc.EnergySource = src

		monitor, ok := resultValue(s, w, r, s.registry.EnergyMonitor(ctx, src), "energy monitor")
		if !ok {
			return
		}
		if dc.EnergyState, err = monitor.CurrentEnergyState(ctx); err != nil {
			s.writeErr(w, r, err)
			return
		}

		// A source without a forecast provider is normal; only failures are reported.
		if res := s.registry.ForecastProvider(ctx, src); res.OK() {
			if dc.Forecast, err = res.Value.SolarForecast(ctx); err != nil {
				skipped = append(skipped, "forecast: "+err.Error())
			}
		} else if res.Failed() {
			skipped = append(skipped, "forecast: "+res.Err.Error())
		}
	}

	if req.MinerID != "" {
		m, err := s.stores.Miners.Get(ctx, req.MinerID)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		dc.Miner = m
	}

	if req.HomeForecastID != "" {
		res := s.registry.HomeLoadForecastProvider(ctx, req.HomeForecastID)
		err := res.Err
		if res.OK() {
			dc.HomeLoadForecast, err = res.Value.HomeConsumptionForecast(ctx, req.HoursAhead)
		}
		if err != nil {
			skipped = append(skipped, "home_load_forecast: "+err.Error())
		}
	}

	if req.TrackerID != "" {
		res := s.registry.MiningPerformanceTracker(ctx, req.TrackerID)
		err := res.Err
		if res.OK() {
			dc.TrackerCurrentHashRate, err = res.Value.CurrentHashRate(ctx, req.MinerID)
		}
		if err != nil {
			skipped = append(skipped, "tracker_current_hashrate: "+err.Error())
		}
	}

	rules, err := s.stores.Rules.List(ctx)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	engine := s.registry.RuleEngine()
	engine.LoadRules(rules)

	resp := map[string]any{
		"context": dc,
		"rules":   len(rules),
	}
	if req.UnitID != "" {
		resp["unit_id"] = req.UnitID
	}
	if len(skipped) > 0 {
		resp["skipped"] = skipped
	}
	if m, ok := engine.(ruleMatcher); ok {
		rule, matched := m.Match(dc)
		resp["matched"] = matched
		if matched {
			resp["rule"] = rule
		}
	} else {
		resp["matched"] = engine.Evaluate(dc)
	}
	writeJSON(w, http.StatusOK, resp)
}

// applyUnit copies the unit's references into fields the request left empty.
func (req *evaluateRequest) applyUnit(u *domain.OptimizationUnit) {
	if req.EnergySourceID == "" {
		req.EnergySourceID = u.EnergySourceID
	}
	if req.MinerID == "" && len(u.TargetMinerIDs) > 0 {
		req.MinerID = u.TargetMinerIDs[0]
	}
	if req.HomeForecastID == "" {
		req.HomeForecastID = u.HomeForecastProviderID
	}
	if req.TrackerID == "" {
		req.TrackerID = u.PerformanceTrackerID
	}
}
