package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// EnergyMonitor reads production, consumption, grid and battery sensors.
//
// Production and consumption are required when configured. The grid
// reading is required when configured, and battery power is required when
// both battery sensors are configured. Other failures are logged and the
// reading is left out.
type EnergyMonitor struct {
	api    API
	cfg    *adapter.HomeAssistantMonitorConfig
	source *domain.EnergySource
	logger adapter.Logger
	now    func() time.Time
}

var _ domain.EnergyMonitor = (*EnergyMonitor)(nil)

// NewEnergyMonitor creates a monitor. energySource supplies the battery
// capacity when no remaining-capacity entity is configured.
func NewEnergyMonitor(api API, cfg *adapter.HomeAssistantMonitorConfig, energySource *domain.EnergySource, logger adapter.Logger) *EnergyMonitor {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	return &EnergyMonitor{api: api, cfg: cfg, source: energySource, logger: logger, now: time.Now}
}

// CurrentEnergyState implements domain.EnergyMonitor.
func (m *EnergyMonitor) CurrentEnergyState(ctx context.Context) (*domain.EnergyStateSnapshot, error) {
	now := m.now()
	c := m.cfg
	var critical []error

	production, err := m.power(ctx, c.EntityProduction, c.UnitProduction)
	if err != nil {
		critical = append(critical, err)
	}
	consumption, err := m.power(ctx, c.EntityConsumption, c.UnitConsumption)
	if err != nil {
		critical = append(critical, err)
	}
	grid, err := m.power(ctx, c.EntityGrid, c.UnitGrid)
	if err != nil {
		critical = append(critical, err)
	}
	batteryPower, err := m.power(ctx, c.EntityBatteryPower, c.UnitBatteryPower)
	if err != nil {
		if c.EntityBatterySOC != "" {
			critical = append(critical, err)
		} else {
			m.logger.Warn("battery power unavailable", "entity", c.EntityBatteryPower, "error", err)
		}
	}
	if len(critical) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, errors.Join(critical...))
	}

	snap := &domain.EnergyStateSnapshot{
		Consumption: domain.LoadState{Timestamp: now},
		Timestamp:   now,
	}
	if production != nil {
		snap.Production = *production
	}
	if consumption != nil {
		snap.Consumption.CurrentPower = *consumption
	}
	if grid != nil {
		g := *grid
		if c.GridPositiveExport {
			g = -g
		}
		snap.Grid = &domain.GridState{CurrentPower: g, Timestamp: now}
	}
	if batteryPower != nil {
		if !c.BatteryPositiveCharge {
			*batteryPower = -*batteryPower
		}
		snap.Battery = m.battery(ctx, *batteryPower, now)
	}
	return snap, nil
}

// battery builds the battery state, or nil when the charge level or the
// capacity cannot be determined.
func (m *EnergyMonitor) battery(ctx context.Context, power domain.Watts, now time.Time) *domain.BatteryState {
	c := m.cfg
	if c.EntityBatterySOC == "" {
		return nil
	}
	st, err := m.api.State(ctx, c.EntityBatterySOC)
	if err != nil {
		m.logger.Warn("battery state of charge unavailable", "entity", c.EntityBatterySOC, "error", err)
		return nil
	}
	soc, err := ParsePercentage(st.State)
	if err != nil {
		m.logger.Warn("battery state of charge unreadable", "entity", c.EntityBatterySOC, "error", err)
		return nil
	}

	var remaining domain.WattHours
	switch {
	case c.EntityBatteryRemainingCapacity != "":
		st, err := m.api.State(ctx, c.EntityBatteryRemainingCapacity)
		if err == nil {
			remaining, err = ParseEnergy(st.State, c.UnitBatteryRemainingCapacity)
		}
		if err != nil {
			m.logger.Warn("battery remaining capacity unavailable", "entity", c.EntityBatteryRemainingCapacity, "error", err)
			return nil
		}
	case m.source != nil && m.source.HasStorage():
		remaining = m.source.StorageCapacity * domain.WattHours(soc) / 100
	default:
		m.logger.Warn("battery capacity unknown; set storage_capacity on the energy source or a remaining capacity entity")
		return nil
	}

	return &domain.BatteryState{
		StateOfCharge:     soc,
		RemainingCapacity: remaining,
		CurrentPower:      power,
		Timestamp:         now,
	}
}

// power reads one power entity. An unconfigured entity yields nil, nil.
func (m *EnergyMonitor) power(ctx context.Context, entityID, unit string) (*domain.Watts, error) {
	if entityID == "" {
		return nil, nil
	}
	st, err := m.api.State(ctx, entityID)
	if err != nil {
		return nil, err
	}
	w, err := ParsePower(st.State, unit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entityID, err)
	}
	return &w, nil
}
