package homeassistant

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// ForecastProvider builds a solar forecast from forecast sensors such as
// those of the Forecast.Solar or Solcast integrations.
//
// Hourly sensors become one-hour intervals at their offset from now; the
// daily energy sensors become whole-day intervals for today and tomorrow.
type ForecastProvider struct {
	api    API
	cfg    *adapter.HomeAssistantForecastConfig
	logger adapter.Logger
	now    func() time.Time
}

var _ domain.ForecastProvider = (*ForecastProvider)(nil)

// NewForecastProvider creates a forecast provider.
func NewForecastProvider(api API, cfg *adapter.HomeAssistantForecastConfig, logger adapter.Logger) *ForecastProvider {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	return &ForecastProvider{api: api, cfg: cfg, logger: logger, now: time.Now}
}

// SolarForecast implements domain.ForecastProvider.
// It fails when the energy-today sensor is configured but unreadable, or
// when no sensor produced a value.
func (p *ForecastProvider) SolarForecast(ctx context.Context) (*domain.ForecastData, error) {
	c := p.cfg
	now := p.now()
	hour := now.Truncate(time.Hour)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	data := &domain.ForecastData{GeneratedAt: now}

	hourly := []struct {
		offset      time.Duration
		powerEntity string
		powerUnit   string
		energy      string
		energyUnit  string
	}{
		{0, c.EntityPowerActualH, c.UnitPowerActualH, c.EntityEnergyActualH, c.UnitEnergyActualH},
		{time.Hour, c.EntityPowerNext1H, c.UnitPowerNext1H, c.EntityEnergyNext1H, c.UnitEnergyNext1H},
		{12 * time.Hour, c.EntityPowerNext12H, c.UnitPowerNext12H, "", ""},
		{24 * time.Hour, c.EntityPowerNext24H, c.UnitPowerNext24H, "", ""},
	}
	for _, h := range hourly {
		start := hour.Add(h.offset)
		iv := domain.ForecastInterval{Start: start, End: start.Add(time.Hour)}
		if w, ok := p.readPower(ctx, h.powerEntity, h.powerUnit); ok {
			at := start
			if h.offset == 0 {
				at = now
			}
			iv.PowerPoints = []domain.ForecastPowerPoint{{Timestamp: at, Power: w}}
		}
		if wh, err := p.readEnergy(ctx, h.energy, h.energyUnit); err == nil && wh != nil {
			iv.Energy = wh
		}
		if len(iv.PowerPoints) > 0 || iv.Energy != nil {
			data.Intervals = append(data.Intervals, iv)
		}
	}

	energyToday, err := p.readEnergy(ctx, c.EntityEnergyToday, c.UnitEnergyToday)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	remaining, _ := p.readEnergy(ctx, c.EntityEnergyRemainingToday, c.UnitEnergyRemainingToday)
	if energyToday != nil || remaining != nil {
		data.Intervals = append(data.Intervals, domain.ForecastInterval{
			Start:           today,
			End:             tomorrow,
			Energy:          energyToday,
			EnergyRemaining: remaining,
		})
	}
	if energyTomorrow, _ := p.readEnergy(ctx, c.EntityEnergyTomorrow, c.UnitEnergyTomorrow); energyTomorrow != nil {
		data.Intervals = append(data.Intervals, domain.ForecastInterval{
			Start:  tomorrow,
			End:    tomorrow.AddDate(0, 0, 1),
			Energy: energyTomorrow,
		})
	}

	if len(data.Intervals) == 0 {
		return nil, fmt.Errorf("%w: no forecast sensor returned a value", domain.ErrDataUnavailable)
	}
	return data, nil
}

func (p *ForecastProvider) readPower(ctx context.Context, entityID, unit string) (domain.Watts, bool) {
	if entityID == "" {
		return 0, false
	}
	st, err := p.api.State(ctx, entityID)
	if err != nil {
		p.logger.Warn("forecast sensor unavailable", "entity", entityID, "error", err)
		return 0, false
	}
	w, err := ParsePower(st.State, unit)
	if err != nil {
		p.logger.Warn("forecast sensor unreadable", "entity", entityID, "error", err)
		return 0, false
	}
	return w, true
}

// readEnergy returns nil, nil for an unconfigured entity.
func (p *ForecastProvider) readEnergy(ctx context.Context, entityID, unit string) (*domain.WattHours, error) {
	if entityID == "" {
		return nil, nil
	}
	st, err := p.api.State(ctx, entityID)
	if err == nil {
		var wh domain.WattHours
		if wh, err = ParseEnergy(st.State, unit); err == nil {
			return &wh, nil
		}
	}
	p.logger.Warn("forecast sensor unavailable", "entity", entityID, "error", err)
	return nil, fmt.Errorf("%s: %w", entityID, err)
}
