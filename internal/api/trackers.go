package api

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// maxHoursAhead caps the home load forecast horizon.
const maxHoursAhead = 168

// maxRewardLimit caps the number of rewards returned in one request.
const maxRewardLimit = 500

// rewardRecorder is implemented by trackers that can store rewards.
type rewardRecorder interface {
	RecordReward(ctx context.Context, minerID string, reward domain.MiningReward) error
}

// intQuery parses an integer query parameter within [lo, hi], returning def
// when absent. On a bad value it writes a 400 and returns false.
func intQuery(w http.ResponseWriter, r *http.Request, name string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		writeBadRequest(w, name+" must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
		return 0, false
	}
	return v, true
}

// handleHomeForecast returns a household load forecast.
//
// Query parameters:
//   - hours: horizon in hours (default 3, max 168)
func (s *Server) handleHomeForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	hours, ok := intQuery(w, r, "hours", domain.DefaultHoursAhead, 1, maxHoursAhead)
	if !ok {
		return
	}
	provider, ok := resultValue(s, w, r, s.registry.HomeLoadForecastProvider(ctx, id), "home forecast provider")
	if !ok {
		return
	}
	forecast, err := provider.HomeConsumptionForecast(ctx, hours)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	// Ordered list rather than the provider's map.
	type point struct {
		Time  time.Time    `json:"time"`
		Power domain.Watts `json:"power"`
	}
	points := make([]point, 0, len(forecast.PredictedWatts))
	for t, p := range forecast.PredictedWatts {
		points = append(points, point{Time: t, Power: p})
	}
	slices.SortFunc(points, func(a, b point) int { return a.Time.Compare(b.Time) })

	writeJSON(w, http.StatusOK, map[string]any{
		"provider_id":  id,
		"hours_ahead":  hours,
		"generated_at": forecast.GeneratedAt,
		"points":       points,
	})
}

// handleTrackerHashRate returns the hashrate reported by a performance tracker.
//
// Query parameters:
//   - miner_id: restrict to one miner (default all)
func (s *Server) handleTrackerHashRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	minerID := r.URL.Query().Get("miner_id")

	tracker, ok := resultValue(s, w, r, s.registry.MiningPerformanceTracker(ctx, id), "performance tracker")
	if !ok {
		return
	}
	rate, err := tracker.CurrentHashRate(ctx, minerID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tracker_id": id,
		"miner_id":   minerID,
		"hash_rate":  rate,
	})
}

// handleTrackerRewards returns recent rewards from a performance tracker.
//
// Query parameters:
//   - miner_id: restrict to one miner (default all)
//   - limit: maximum rewards (default 10, max 500)
func (s *Server) handleTrackerRewards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	minerID := r.URL.Query().Get("miner_id")

	limit, ok := intQuery(w, r, "limit", domain.DefaultRewardLimit, 1, maxRewardLimit)
	if !ok {
		return
	}
	tracker, ok := resultValue(s, w, r, s.registry.MiningPerformanceTracker(ctx, id), "performance tracker")
	if !ok {
		return
	}
	rewards, err := tracker.RecentRewards(ctx, minerID, limit)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tracker_id": id,
		"rewards":    rewards,
		"count":      len(rewards),
	})
}

// recordRewardRequest is the body of POST /performance-trackers/{id}/rewards.
type recordRewardRequest struct {
	MinerID   string         `json:"miner_id"`
	Amount    domain.Satoshi `json:"amount"`
	Timestamp time.Time      `json:"timestamp"`
}

// handleRecordReward stores a reward through a tracker that supports writes.
func (s *Server) handleRecordReward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req recordRewardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		writeBadRequest(w, "amount must be positive")
		return
	}

	tracker, ok := resultValue(s, w, r, s.registry.MiningPerformanceTracker(ctx, id), "performance tracker")
	if !ok {
		return
	}
	recorder, ok := tracker.(rewardRecorder)
	if !ok {
		writeError(w, http.StatusNotImplemented, ErrCodeNotSupported, "tracker "+id+" does not record rewards")
		return
	}

	reward := domain.MiningReward{Amount: req.Amount, Timestamp: req.Timestamp}
	if err := recorder.RecordReward(ctx, req.MinerID, reward); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"tracker_id": id,
		"miner_id":   req.MinerID,
		"reward":     reward,
	})
}
