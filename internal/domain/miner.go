package domain

import (
	"context"
	"fmt"
)

// MinerStatus is the operating state of a miner.
type MinerStatus string

// Miner statuses.
const (
	MinerStatusUnknown  MinerStatus = "unknown"
	MinerStatusOff      MinerStatus = "off"
	MinerStatusOn       MinerStatus = "on"
	MinerStatusStarting MinerStatus = "starting"
	MinerStatusStopping MinerStatus = "stopping"
	MinerStatusError    MinerStatus = "error"
)

// ParseMinerStatus converts a string to a MinerStatus, defaulting to unknown.
func ParseMinerStatus(s string) MinerStatus {
	switch st := MinerStatus(s); st {
	case MinerStatusOff, MinerStatusOn, MinerStatusStarting, MinerStatusStopping, MinerStatusError:
		return st
	default:
		return MinerStatusUnknown
	}
}

// HashRate is a hashing speed with its unit (e.g. TH/s).
type HashRate struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// DefaultHashRateUnit is used when a source does not report one.
const DefaultHashRateUnit = "TH/s"

// Miner is a mining device driven by a miner controller.
type Miner struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Status              MinerStatus `json:"status"`
	Active              bool        `json:"active"`
	HashRateMax         *HashRate   `json:"hash_rate_max,omitempty"`
	PowerConsumptionMax Watts       `json:"power_consumption_max,omitempty"`
	PowerConsumption    Watts       `json:"power_consumption,omitempty"`
	ControllerID        string      `json:"controller_id,omitempty"`
}

// TurnOn moves the miner to starting when it is off, errored or unknown.
func (m *Miner) TurnOn() error {
	switch m.Status {
	case MinerStatusOff, MinerStatusError, MinerStatusUnknown, "":
		m.Status = MinerStatusStarting
		return nil
	case MinerStatusOn, MinerStatusStarting:
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, MinerStatusStarting)
	}
}

// TurnOff moves the miner to stopping when it is on or errored.
func (m *Miner) TurnOff() error {
	switch m.Status {
	case MinerStatusOn, MinerStatusError:
		m.Status = MinerStatusStopping
		return nil
	case MinerStatusOff, MinerStatusStopping:
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, MinerStatusStopping)
	}
}

// UpdateStatus records a status reported by a controller.
// A nil power leaves the last known consumption unchanged.
func (m *Miner) UpdateStatus(status MinerStatus, power *Watts) {
	m.Status = status
	if power != nil {
		m.PowerConsumption = *power
	}
}

// MinerController starts, stops and inspects one miner.
type MinerController interface {
	StartMiner(ctx context.Context) (bool, error)
	StopMiner(ctx context.Context) (bool, error)
	MinerStatus(ctx context.Context) (MinerStatus, error)
	MinerPower(ctx context.Context) (Watts, error)
}

// HashRateReporter is implemented by controllers that can read the hashrate
// of the miner they drive.
type HashRateReporter interface {
	CurrentHashRate(ctx context.Context) (HashRate, error)
}
