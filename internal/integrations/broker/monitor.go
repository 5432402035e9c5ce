package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/edge-mining-core/internal/integrations/homeassistant"
)

// Reading names, as returned by MQTTMonitorConfig.Topics.
const (
	readingProduction   = "production"
	readingConsumption  = "consumption"
	readingGrid         = "grid"
	readingBatterySOC   = "battery_soc"
	readingBatteryPower = "battery_power"
)

type reading struct {
	value float64
	at    time.Time
}

// EnergyMonitor keeps the latest value published on each sensor topic and
// assembles a snapshot on demand.
//
// A reading older than max_data_age_seconds is stale. Stale or missing
// production, consumption and grid readings fail the snapshot; battery
// readings are dropped instead unless both battery topics are configured.
type EnergyMonitor struct {
	broker Broker
	cfg    *adapter.MQTTMonitorConfig
	source *domain.EnergySource
	logger adapter.Logger
	now    func() time.Time

	mu       sync.RWMutex
	readings map[string]reading
}

var _ domain.EnergyMonitor = (*EnergyMonitor)(nil)

// NewEnergyMonitor subscribes to every configured topic.
func NewEnergyMonitor(b Broker, cfg *adapter.MQTTMonitorConfig, energySource *domain.EnergySource, logger adapter.Logger) (*EnergyMonitor, error) {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	m := &EnergyMonitor{
		broker:   b,
		cfg:      cfg,
		source:   energySource,
		logger:   logger,
		now:      time.Now,
		readings: make(map[string]reading),
	}
	for name, topic := range cfg.Topics() {
		if err := b.Subscribe(topic, b.DefaultQoS(), m.handler(name)); err != nil {
			return nil, fmt.Errorf("subscribing %s to %s: %w", name, topic, err)
		}
	}
	return m, nil
}

func (m *EnergyMonitor) unit(name string) string {
	switch name {
	case readingProduction:
		return m.cfg.UnitProduction
	case readingConsumption:
		return m.cfg.UnitConsumption
	case readingGrid:
		return m.cfg.UnitGrid
	case readingBatteryPower:
		return m.cfg.UnitBatteryPower
	}
	return ""
}

func (m *EnergyMonitor) handler(name string) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		state := payloadState(payload)
		var (
			v   float64
			err error
		)
		if name == readingBatterySOC {
			var p domain.Percentage
			p, err = homeassistant.ParsePercentage(state)
			v = float64(p)
		} else {
			var w domain.Watts
			w, err = homeassistant.ParsePower(state, m.unit(name))
			v = float64(w)
		}
		if err != nil {
			return fmt.Errorf("%s on %s: %w", name, topic, err)
		}
		m.mu.Lock()
		m.readings[name] = reading{value: v, at: m.now()}
		m.mu.Unlock()
		return nil
	}
}

// payloadState accepts a bare value, a JSON string or a JSON object with a
// "state" or "value" member.
func payloadState(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	if strings.HasPrefix(s, "{") {
		var obj map[string]any
		if json.Unmarshal(payload, &obj) == nil {
			for _, key := range []string{"state", "value"} {
				if v, ok := obj[key]; ok {
					return fmt.Sprint(v)
				}
			}
		}
		return s
	}
	return strings.Trim(s, `"`)
}

var errNotConfigured = errors.New("not configured")

// lookup returns a fresh reading, errNotConfigured when the reading has no
// topic, or a domain error when it is missing or stale.
func (m *EnergyMonitor) lookup(name string, now time.Time) (float64, error) {
	if _, configured := m.cfg.Topics()[name]; !configured {
		return 0, errNotConfigured
	}
	m.mu.RLock()
	r, ok := m.readings[name]
	m.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: no %s reading received", domain.ErrDataUnavailable, name)
	}
	maxAge := time.Duration(m.cfg.MaxDataAgeSeconds) * time.Second
	if maxAge > 0 && now.Sub(r.at) > maxAge {
		return 0, fmt.Errorf("%w: %s is %s old", domain.ErrStaleData, name, now.Sub(r.at).Round(time.Second))
	}
	return r.value, nil
}

// CurrentEnergyState implements domain.EnergyMonitor.
func (m *EnergyMonitor) CurrentEnergyState(ctx context.Context) (*domain.EnergyStateSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !m.broker.IsConnected() {
		return nil, domain.ErrNotConnected
	}

	now := m.now()
	snap := &domain.EnergyStateSnapshot{
		Consumption: domain.LoadState{Timestamp: now},
		Timestamp:   now,
	}
	var critical []error
	read := func(name string, required bool) (float64, bool) {
		v, err := m.lookup(name, now)
		switch {
		case err == nil:
			return v, true
		case errors.Is(err, errNotConfigured):
		case required:
			critical = append(critical, err)
		default:
			m.logger.Debug("mqtt reading skipped", "reading", name, "error", err)
		}
		return 0, false
	}

	if v, ok := read(readingProduction, true); ok {
		snap.Production = domain.Watts(v)
	}
	if v, ok := read(readingConsumption, true); ok {
		snap.Consumption.CurrentPower = domain.Watts(v)
	}
	if v, ok := read(readingGrid, true); ok {
		if m.cfg.GridPositiveExport {
			v = -v
		}
		snap.Grid = &domain.GridState{CurrentPower: domain.Watts(v), Timestamp: now}
	}
	batteryRequired := m.cfg.TopicBatterySOC != "" && m.cfg.TopicBatteryPower != ""
	soc, socOK := read(readingBatterySOC, batteryRequired)
	power, powerOK := read(readingBatteryPower, batteryRequired)

	if len(critical) > 0 {
		return nil, errors.Join(critical...)
	}
	if socOK && powerOK {
		snap.Battery = m.battery(domain.Percentage(soc), domain.Watts(power), now)
	}
	return snap, nil
}

func (m *EnergyMonitor) battery(soc domain.Percentage, power domain.Watts, now time.Time) *domain.BatteryState {
	capacity := domain.WattHours(m.cfg.BatteryCapacityWh)
	if capacity <= 0 && m.source != nil && m.source.HasStorage() {
		capacity = m.source.StorageCapacity
	}
	if capacity <= 0 {
		m.logger.Warn("battery capacity unknown; set battery_capacity_wh or storage_capacity on the energy source")
		return nil
	}
	if !m.cfg.BatteryPositiveCharge {
		power = -power
	}
	return &domain.BatteryState{
		StateOfCharge:     soc,
		RemainingCapacity: capacity * domain.WattHours(soc) / 100,
		CurrentPower:      power,
		Timestamp:         now,
	}
}
