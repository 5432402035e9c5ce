package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edge-mining-core/internal/audit"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/store"
)

// handleListMiners returns all miners.
func (s *Server) handleListMiners(w http.ResponseWriter, r *http.Request) {
	miners, err := s.stores.Miners.List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"miners": miners, "count": len(miners)})
}

// handleGetMiner returns a single miner by ID.
func (s *Server) handleGetMiner(w http.ResponseWriter, r *http.Request) {
	m, err := s.stores.Miners.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// minerStatusResponse is the live view of a miner read from its controller.
type minerStatusResponse struct {
	MinerID  string             `json:"miner_id"`
	Status   domain.MinerStatus `json:"status"`
	Power    *domain.Watts      `json:"power,omitempty"`
	HashRate *domain.HashRate   `json:"hash_rate,omitempty"`
	Updated  time.Time          `json:"updated_at"`
}

// handleMinerStatus asks the miner's controller for status, power and, when
// the controller can report it, hashrate. A changed status is persisted.
func (s *Server) handleMinerStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.stores.Miners.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	ctrl, ok := resultValue(s, w, r, s.registry.MinerController(ctx, m), "miner controller")
	if !ok {
		return
	}
	status, err := ctrl.MinerStatus(ctx)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	resp := minerStatusResponse{MinerID: m.ID, Status: status, Updated: time.Now().UTC()}
	if power, err := ctrl.MinerPower(ctx); err == nil {
		resp.Power = &power
	} else {
		s.logger.Debug("miner power unavailable", "miner_id", m.ID, "error", err)
	}
	if reporter, ok := ctrl.(domain.HashRateReporter); ok {
		if rate, err := reporter.CurrentHashRate(ctx); err == nil {
			resp.HashRate = &rate
		} else {
			s.logger.Debug("miner hashrate unavailable", "miner_id", m.ID, "error", err)
		}
	}

	if status != m.Status {
		s.recordMinerStatus(ctx, m.ID, status)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStartMiner turns a miner on through its controller.
func (s *Server) handleStartMiner(w http.ResponseWriter, r *http.Request) {
	s.commandMiner(w, r, true)
}

// handleStopMiner turns a miner off through its controller.
func (s *Server) handleStopMiner(w http.ResponseWriter, r *http.Request) {
	s.commandMiner(w, r, false)
}

// commandMiner applies the domain transition first, so a command that makes
// no sense for the recorded status is a 409 without touching the device.
// An accepted command records starting or stopping; the next status read
// settles it.
func (s *Server) commandMiner(w http.ResponseWriter, r *http.Request, start bool) {
	ctx := r.Context()
	m, err := s.stores.Miners.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	prev := m.Status
	transition, command := m.TurnOff, "stop"
	if start {
		transition, command = m.TurnOn, "start"
	}
	if err := transition(); err != nil {
		s.writeErr(w, r, err)
		return
	}

	ctrl, ok := resultValue(s, w, r, s.registry.MinerController(ctx, m), "miner controller")
	if !ok {
		return
	}

	run := ctrl.StopMiner
	if start {
		run = ctrl.StartMiner
	}
	accepted, err := run(ctx)
	if err != nil {
		s.recordMinerStatus(ctx, m.ID, domain.MinerStatusError)
		s.writeErr(w, r, err)
		return
	}

	status := prev
	if accepted {
		status = m.Status
	}
	s.recordMinerStatus(ctx, m.ID, status)
	s.logger.Info("miner command", "miner_id", m.ID, "command", command, "accepted", accepted)
	s.recordAudit(r, audit.ActionCommand, "miner", m.ID, map[string]any{
		"command": command, "accepted": accepted, "status": string(status),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"miner_id": m.ID,
		"command":  command,
		"accepted": accepted,
		"status":   status,
	})
}

// recordMinerStatus persists and announces a miner status. Failures are
// logged; the caller has already acted on the device.
func (s *Server) recordMinerStatus(ctx context.Context, minerID string, status domain.MinerStatus) {
	if err := s.stores.Miners.UpdateStatus(ctx, minerID, status); err != nil {
		s.logger.Warn("recording miner status", "miner_id", minerID, "error", err)
		return
	}
	s.hub.Broadcast(ChannelMinerStatus, map[string]any{
		"miner_id": minerID,
		"status":   status,
	})
}

// handlePutMiner creates or replaces a miner. The recorded status survives
// the update unless the body sets one.
func (s *Server) handlePutMiner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var m domain.Miner
	if !decodeBody(w, r, &m) {
		return
	}
	m.ID = id

	prev, err := s.stores.Miners.Get(ctx, id)
	if err != nil && !errors.Is(err, store.ErrMinerNotFound) {
		s.writeErr(w, r, err)
		return
	}
	if prev != nil && m.Status == "" {
		m.Status = prev.Status
	}
	if err := s.stores.Miners.Save(ctx, &m); err != nil {
		s.writeErr(w, r, err)
		return
	}

	stale := []string{m.ControllerID}
	if prev != nil {
		stale = append(stale, prev.ControllerID)
	}
	s.invalidateAdapters(stale...)
	s.publishEvent(ChannelAdapterUpdated, map[string]any{
		"category": "miner", "id": m.ID, "action": "saved",
	})
	s.recordAudit(r, audit.ActionPut, "miner", m.ID, map[string]any{"controller_id": m.ControllerID})

	writeJSON(w, http.StatusOK, m)
}

// handleDeleteMiner removes a miner.
func (s *Server) handleDeleteMiner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	m, err := s.stores.Miners.Get(ctx, id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.stores.Miners.Delete(ctx, id); err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.invalidateAdapters(m.ControllerID)
	s.publishEvent(ChannelAdapterUpdated, map[string]any{
		"category": "miner", "id": id, "action": "deleted",
	})
	s.recordAudit(r, audit.ActionDelete, "miner", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
