// Package homeassistant talks to a Home Assistant instance over its REST API.
//
// Service is the shared external service (home_assistant_api). It owns the
// HTTP session, a circuit breaker and connect retries. EnergyMonitor,
// ForecastProvider and SocketController are built on top of it and read
// sensor entities through State.
//
// Sensor states arrive as strings. ParsePower, ParseEnergy and
// ParsePercentage convert them to domain units (kW to W, kWh to Wh,
// percentages clamped to 0-100). States "unavailable" and "unknown" are
// reported as ErrUnavailable.
package homeassistant
