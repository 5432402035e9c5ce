// Package domain holds the value objects, entities and capability ports of
// Edge Mining Core.
//
// Capability ports are the narrow contracts the rest of the system programs
// against. Concrete implementations live under internal/integrations and are
// only ever handed out by the adapter registry:
//
//	┌────────────────┐   EnergyMonitor / MinerController / Notifier / ...
//	│ adapter.Registry│ ─────────────────────────────────────────────────►  callers
//	└────────────────┘
//	        ▲ builds
//	        │
//	┌────────────────┐
//	│ integrations/* │  dummy, homeassistant, telegram, broker, influx
//	└────────────────┘
//
// # Key Types
//
//   - EnergySource, Miner: context entities referenced during resolution
//   - EnergyStateSnapshot: point-in-time production, load, battery and grid
//   - ForecastData, ConsumptionForecast: solar and home-load predictions
//   - DecisionalContext: everything a RuleEngine evaluates against
//
// # Units
//
// Power is always Watts and energy WattHours. Adapters convert from source
// units (kW, kWh) before building domain values.
package domain
