package dummy

import (
	"context"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

const forecastHours = 24

// SolarForecast produces a plausible 24-hour solar forecast, one interval
// per hour starting at the current hour.
type SolarForecast struct {
	src       *source
	logger    adapter.Logger
	peak      domain.Watts
	startHour int
	endHour   int
}

var _ domain.ForecastProvider = (*SolarForecast)(nil)

// NewSolarForecast creates a forecast. A zero capacity_kwp falls back to the
// energy source's nominal power.
func NewSolarForecast(cfg *adapter.DummySolarForecastConfig, energySource *domain.EnergySource, logger adapter.Logger) *SolarForecast {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	capacity := domain.Watts(cfg.CapacityKWp * 1000)
	if capacity == 0 && energySource != nil {
		capacity = energySource.NominalPowerMax
	}
	return &SolarForecast{
		src:       newSource(),
		logger:    logger,
		peak:      capacity * domain.Watts(cfg.EfficiencyPercent/100),
		startHour: cfg.ProductionStartHour,
		endHour:   cfg.ProductionEndHour,
	}
}

// SolarForecast implements domain.ForecastProvider.
func (f *SolarForecast) SolarForecast(ctx context.Context) (*domain.ForecastData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := f.src.now()
	first := now.Truncate(time.Hour)

	data := &domain.ForecastData{
		Intervals:   make([]domain.ForecastInterval, 0, forecastHours),
		GeneratedAt: now,
	}
	for i := range forecastHours {
		start := first.Add(time.Duration(i) * time.Hour)
		var power domain.Watts
		if factor := solarFactor(start, f.startHour, f.endHour); factor > 0 {
			power = f.peak * domain.Watts(factor*f.src.uniform(0.7, 1.0))
		}
		energy := domain.WattHours(power)
		data.Intervals = append(data.Intervals, domain.ForecastInterval{
			Start:       start,
			End:         start.Add(time.Hour),
			Energy:      &energy,
			PowerPoints: []domain.ForecastPowerPoint{{Timestamp: start, Power: power}},
		})
	}
	f.logger.Debug("simulated solar forecast generated", "intervals", len(data.Intervals), "peak_w", float64(f.peak))
	return data, nil
}
