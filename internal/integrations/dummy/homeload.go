package dummy

import (
	"context"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// HomeLoadForecast predicts a flat household load, picked at random between
// 200 W and the configured maximum, for each requested hour.
type HomeLoadForecast struct {
	src     *source
	maxLoad float64
}

var _ domain.HomeLoadForecastProvider = (*HomeLoadForecast)(nil)

// NewHomeLoadForecast creates a forecast provider.
func NewHomeLoadForecast(cfg *adapter.DummyHomeForecastConfig) *HomeLoadForecast {
	return &HomeLoadForecast{src: newSource(), maxLoad: cfg.LoadPowerMax}
}

// HomeConsumptionForecast implements domain.HomeLoadForecastProvider.
// A non-positive hoursAhead uses domain.DefaultHoursAhead.
func (f *HomeLoadForecast) HomeConsumptionForecast(ctx context.Context, hoursAhead int) (*domain.ConsumptionForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hoursAhead <= 0 {
		hoursAhead = domain.DefaultHoursAhead
	}
	now := f.src.now()
	avg := domain.Watts(f.src.uniform(min(200, f.maxLoad), f.maxLoad))

	predicted := make(map[time.Time]domain.Watts, hoursAhead)
	for i := range hoursAhead {
		predicted[now.Add(time.Duration(i)*time.Hour)] = avg
	}
	return &domain.ConsumptionForecast{PredictedWatts: predicted, GeneratedAt: now}, nil
}
