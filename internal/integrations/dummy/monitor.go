package dummy

import (
	"context"
	"sync"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

const (
	defaultPeakProduction domain.Watts = 4000
	maxBatteryPower       domain.Watts = 3000
	minBatterySOC         domain.Percentage = 20
	minBaseLoad                        = 150.0
	maxBaseLoad                        = 600.0
)

// SolarMonitor simulates a solar installation with an optional battery.
//
// Production follows the hour of day and peaks at the source's nominal
// power. With storage, the battery absorbs surplus and covers deficits up
// to 3 kW; the grid takes the rest.
type SolarMonitor struct {
	src            *source
	peak           domain.Watts
	maxConsumption domain.Watts
	capacity       domain.WattHours

	mu  sync.Mutex
	soc domain.Percentage
}

var _ domain.EnergyMonitor = (*SolarMonitor)(nil)

// NewSolarMonitor creates a monitor for energySource, which may be nil.
func NewSolarMonitor(cfg *adapter.DummySolarMonitorConfig, energySource *domain.EnergySource) *SolarMonitor {
	m := &SolarMonitor{
		src:            newSource(),
		peak:           defaultPeakProduction,
		maxConsumption: domain.Watts(cfg.MaxConsumptionPower),
	}
	if energySource != nil {
		if energySource.NominalPowerMax > 0 {
			m.peak = energySource.NominalPowerMax
		}
		if energySource.HasStorage() {
			m.capacity = energySource.StorageCapacity
		}
	}
	m.soc = domain.Percentage(m.src.uniform(40, 90))
	return m
}

// CurrentEnergyState implements domain.EnergyMonitor.
func (m *SolarMonitor) CurrentEnergyState(ctx context.Context) (*domain.EnergyStateSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.src.now()

	var production domain.Watts
	if f := solarFactor(now, 6, 20); f > 0 {
		production = domain.Watts(m.src.uniform(float64(m.peak)/8, float64(m.peak)) * f)
	}
	consumption := domain.Watts(m.src.uniform(min(minBaseLoad, float64(m.maxConsumption)), min(maxBaseLoad, float64(m.maxConsumption))))

	snap := &domain.EnergyStateSnapshot{
		Production:  production,
		Consumption: domain.LoadState{CurrentPower: consumption, Timestamp: now},
		Timestamp:   now,
	}

	net := production - consumption
	var batteryPower domain.Watts
	if m.capacity > 0 {
		m.mu.Lock()
		switch {
		case net > 0 && m.soc < 100:
			batteryPower = min(net, maxBatteryPower)
		case net < 0 && m.soc > minBatterySOC:
			batteryPower = -min(-net, maxBatteryPower)
		}
		// One reading is treated as one minute of flow.
		delta := domain.Percentage(float64(batteryPower) / float64(m.capacity) * 100 / 60)
		m.soc = min(100, max(0, m.soc+delta))
		soc := m.soc
		m.mu.Unlock()

		snap.Battery = &domain.BatteryState{
			StateOfCharge:     soc,
			RemainingCapacity: m.capacity * domain.WattHours(soc) / 100,
			CurrentPower:      batteryPower,
			Timestamp:         now,
		}
	}

	// Import is positive; surplus the battery cannot take is exported.
	snap.Grid = &domain.GridState{CurrentPower: -(net - batteryPower), Timestamp: now}
	return snap, nil
}
