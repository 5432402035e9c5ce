package domain

import (
	"context"
	"time"
)

// Watts is instantaneous power.
type Watts float64

// WattHours is an amount of energy.
type WattHours float64

// Percentage is a value between 0 and 100.
type Percentage float64

// EnergySourceType classifies an energy source.
type EnergySourceType string

// Energy source types.
const (
	EnergySourceSolar EnergySourceType = "solar"
	EnergySourceWind  EnergySourceType = "wind"
	EnergySourceGrid  EnergySourceType = "grid"
	EnergySourceOther EnergySourceType = "other"
)

// EnergySource is a producer the miners can draw from.
// It references at most one energy monitor and one forecast provider.
type EnergySource struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Type               EnergySourceType `json:"type"`
	NominalPowerMax    Watts            `json:"nominal_power_max,omitempty"`
	StorageCapacity    WattHours        `json:"storage_capacity,omitempty"`
	GridContractPower  Watts            `json:"grid_contracted_power,omitempty"`
	EnergyMonitorID    string           `json:"energy_monitor_id,omitempty"`
	ForecastProviderID string           `json:"forecast_provider_id,omitempty"`
}

// HasStorage reports whether a battery is attached to the source.
func (s *EnergySource) HasStorage() bool {
	return s.StorageCapacity > 0
}

// LoadState is the household load excluding miners.
type LoadState struct {
	CurrentPower Watts     `json:"current_power"`
	Timestamp    time.Time `json:"timestamp"`
}

// BatteryState describes a battery at a point in time.
// CurrentPower is positive while charging and negative while discharging.
type BatteryState struct {
	StateOfCharge     Percentage `json:"state_of_charge"`
	RemainingCapacity WattHours  `json:"remaining_capacity"`
	CurrentPower      Watts      `json:"current_power"`
	Timestamp         time.Time  `json:"timestamp"`
}

// ChargingPower returns the power flowing into the battery.
func (b BatteryState) ChargingPower() Watts {
	return max(b.CurrentPower, 0)
}

// DischargingPower returns the power flowing out of the battery.
func (b BatteryState) DischargingPower() Watts {
	return max(-b.CurrentPower, 0)
}

// GridState describes the grid connection.
// CurrentPower is positive while importing and negative while exporting.
type GridState struct {
	CurrentPower Watts     `json:"current_power"`
	Timestamp    time.Time `json:"timestamp"`
}

// ImportingPower returns the power drawn from the grid.
func (g GridState) ImportingPower() Watts {
	return max(g.CurrentPower, 0)
}

// ExportingPower returns the power fed into the grid.
func (g GridState) ExportingPower() Watts {
	return max(-g.CurrentPower, 0)
}

// EnergyStateSnapshot is a point-in-time reading of an energy source.
// Battery and Grid are nil when not present.
type EnergyStateSnapshot struct {
	Production     Watts         `json:"production"`
	Consumption    LoadState     `json:"consumption"`
	Battery        *BatteryState `json:"battery,omitempty"`
	Grid           *GridState    `json:"grid,omitempty"`
	ExternalSource *Watts        `json:"external_source,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Surplus returns production minus household load.
func (s *EnergyStateSnapshot) Surplus() Watts {
	return s.Production - s.Consumption.CurrentPower
}

// EnergyMonitor reports the current energy state of a source.
type EnergyMonitor interface {
	CurrentEnergyState(ctx context.Context) (*EnergyStateSnapshot, error)
}
