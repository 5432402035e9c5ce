package influx

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/influxdb"
)

const (
	rewardField  = "amount"
	rewardWindow = 30 * 24 * time.Hour
)

// Tracker reads the hashrate and reward series of miners.
//
// CurrentHashRate is the mean over the configured window. With an empty
// miner id it averages every miner's samples.
type Tracker struct {
	store  Store
	cfg    *adapter.InfluxTrackerConfig
	logger adapter.Logger
	now    func() time.Time
}

var _ domain.MiningPerformanceTracker = (*Tracker)(nil)

// NewTracker creates a tracker over store.
func NewTracker(store Store, cfg *adapter.InfluxTrackerConfig, logger adapter.Logger) *Tracker {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	return &Tracker{store: store, cfg: cfg, logger: logger, now: time.Now}
}

func (t *Tracker) tags(minerID string) map[string]string {
	if minerID == "" || t.cfg.MinerTag == "" {
		return nil
	}
	return map[string]string{t.cfg.MinerTag: minerID}
}

func (t *Tracker) unit() string {
	if t.cfg.Unit == "" {
		return domain.DefaultHashRateUnit
	}
	return t.cfg.Unit
}

// CurrentHashRate implements domain.MiningPerformanceTracker.
func (t *Tracker) CurrentHashRate(ctx context.Context, minerID string) (*domain.HashRate, error) {
	rows, err := t.store.QueryRange(ctx, influxdb.RangeQuery{
		Measurement: t.cfg.Measurement,
		Field:       t.cfg.Field,
		Tags:        t.tags(minerID),
		Window:      time.Duration(t.cfg.WindowMinutes) * time.Minute,
		Aggregate:   "mean",
	})
	if err != nil {
		return nil, fmt.Errorf("querying hashrate: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: hashrate for %q: %w", domain.ErrDataUnavailable, minerID, influxdb.ErrNoData)
	}
	v, ok := rows[0].Float()
	if !ok {
		return nil, fmt.Errorf("%w: hashrate value %v is not numeric", domain.ErrDataUnavailable, rows[0].Value)
	}
	return &domain.HashRate{Value: v, Unit: t.unit()}, nil
}

// RecentRewards implements domain.MiningPerformanceTracker. Rewards are
// returned newest first from the last 30 days.
func (t *Tracker) RecentRewards(ctx context.Context, minerID string, limit int) ([]domain.MiningReward, error) {
	if limit <= 0 {
		limit = domain.DefaultRewardLimit
	}
	rows, err := t.store.QueryRange(ctx, influxdb.RangeQuery{
		Measurement: t.cfg.RewardsMeasurement,
		Field:       rewardField,
		Tags:        t.tags(minerID),
		Window:      rewardWindow,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("querying rewards: %w", err)
	}

	rewards := make([]domain.MiningReward, 0, len(rows))
	for _, row := range rows {
		v, ok := row.Float()
		if !ok {
			t.logger.Warn("skipping non-numeric reward", "value", row.Value, "time", row.Time)
			continue
		}
		rewards = append(rewards, domain.MiningReward{Amount: domain.Satoshi(v), Timestamp: row.Time})
	}
	return rewards, nil
}

// RecordReward stores a reward for minerID. A zero timestamp means now.
func (t *Tracker) RecordReward(ctx context.Context, minerID string, reward domain.MiningReward) error {
	if reward.Timestamp.IsZero() {
		reward.Timestamp = t.now()
	}
	tags := map[string]string{t.cfg.MinerTag: minerID}
	fields := map[string]any{rewardField: int64(reward.Amount)}
	if err := t.store.WritePointSync(ctx, t.cfg.RewardsMeasurement, tags, fields, reward.Timestamp); err != nil {
		return fmt.Errorf("recording reward: %w", err)
	}
	return nil
}

// RecordHashRate stores a hashrate sample for minerID.
func (t *Tracker) RecordHashRate(ctx context.Context, minerID string, rate domain.HashRate, ts time.Time) error {
	if ts.IsZero() {
		ts = t.now()
	}
	unit := rate.Unit
	if unit == "" {
		unit = t.unit()
	}
	tags := map[string]string{t.cfg.MinerTag: minerID}
	fields := map[string]any{t.cfg.Field: rate.Value, "unit": unit}
	if err := t.store.WritePointSync(ctx, t.cfg.Measurement, tags, fields, ts); err != nil {
		return fmt.Errorf("recording hashrate: %w", err)
	}
	return nil
}
