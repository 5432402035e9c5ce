package dummy

import (
	"context"

	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// PerformanceTracker reports a hashrate around 100 TH/s and no rewards.
type PerformanceTracker struct {
	src *source
}

var _ domain.MiningPerformanceTracker = (*PerformanceTracker)(nil)

// NewPerformanceTracker creates a tracker.
func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{src: newSource()}
}

// CurrentHashRate implements domain.MiningPerformanceTracker.
func (t *PerformanceTracker) CurrentHashRate(ctx context.Context, _ string) (*domain.HashRate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &domain.HashRate{Value: t.src.uniform(90, 110), Unit: domain.DefaultHashRateUnit}, nil
}

// RecentRewards implements domain.MiningPerformanceTracker.
func (t *PerformanceTracker) RecentRewards(ctx context.Context, _ string, _ int) ([]domain.MiningReward, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []domain.MiningReward{}, nil
}
