package adapter

import "slices"

// Category groups adapters by the capability port they implement.
type Category string

// Adapter categories.
const (
	CategoryEnergyMonitor        Category = "energy_monitor"
	CategoryMinerController      Category = "miner_controller"
	CategoryNotifier             Category = "notifier"
	CategoryForecastProvider     Category = "forecast_provider"
	CategoryHomeForecastProvider Category = "home_forecast_provider"
	CategoryPerformanceTracker   Category = "performance_tracker"
	CategoryExternalService      Category = "external_service"
)

// AdapterCategories lists the categories that share the instance cache.
// External services are kept apart in the service cache.
var AdapterCategories = []Category{
	CategoryEnergyMonitor,
	CategoryMinerController,
	CategoryNotifier,
	CategoryForecastProvider,
	CategoryHomeForecastProvider,
	CategoryPerformanceTracker,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	return c == CategoryExternalService || slices.Contains(AdapterCategories, c)
}

// AdapterType selects the concrete implementation within a category.
// The set of valid values is closed per category; see DecodePayload.
type AdapterType string

// Adapter types.
const (
	TypeDummy                         AdapterType = "dummy"
	TypeDummySolar                    AdapterType = "dummy_solar"
	TypeHomeAssistantAPI              AdapterType = "home_assistant_api"
	TypeHomeAssistantMQTT             AdapterType = "home_assistant_mqtt"
	TypeGenericSocketHomeAssistantAPI AdapterType = "generic_socket_home_assistant_api"
	TypeTelegram                      AdapterType = "telegram"
	TypeMQTT                          AdapterType = "mqtt"
	TypeMQTTBroker                    AdapterType = "mqtt_broker"
	TypeInfluxDB                      AdapterType = "influxdb"
)

// Entity is a persisted adapter configuration.
//
// The same shape describes external services (Category ==
// CategoryExternalService), which never carry an ExternalServiceID.
// Config is nil when the entity has no payload.
type Entity struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Category          Category    `json:"category"`
	AdapterType       AdapterType `json:"adapter_type"`
	Config            Payload     `json:"config,omitempty"`
	ExternalServiceID string      `json:"external_service_id,omitempty"`
}

// HasExternalService reports whether the entity depends on an external service.
func (e *Entity) HasExternalService() bool {
	return e.ExternalServiceID != ""
}
