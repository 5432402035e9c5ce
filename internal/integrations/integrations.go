// Package integrations binds every concrete adapter to the registry's
// factory table.
package integrations

import (
	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/integrations/broker"
	"github.com/nerrad567/edge-mining-core/internal/integrations/dummy"
	"github.com/nerrad567/edge-mining-core/internal/integrations/homeassistant"
	"github.com/nerrad567/edge-mining-core/internal/integrations/influx"
	"github.com/nerrad567/edge-mining-core/internal/integrations/telegram"
)

// Register adds all built-in factories to t. It panics if any pair is
// already registered.
func Register(t *adapter.FactoryTable) {
	// Energy monitors
	t.Register(adapter.CategoryEnergyMonitor, adapter.TypeDummySolar, dummy.EnergyMonitorFactory)
	t.Register(adapter.CategoryEnergyMonitor, adapter.TypeHomeAssistantAPI, homeassistant.EnergyMonitorFactory)
	t.Register(adapter.CategoryEnergyMonitor, adapter.TypeHomeAssistantMQTT, broker.EnergyMonitorFactory)

	// Miner controllers
	t.Register(adapter.CategoryMinerController, adapter.TypeDummy, dummy.MinerControllerFactory)
	t.Register(adapter.CategoryMinerController, adapter.TypeGenericSocketHomeAssistantAPI, homeassistant.SocketControllerFactory)

	// Notifiers
	t.Register(adapter.CategoryNotifier, adapter.TypeDummy, dummy.NotifierFactory)
	t.Register(adapter.CategoryNotifier, adapter.TypeTelegram, telegram.Factory)
	t.Register(adapter.CategoryNotifier, adapter.TypeMQTT, broker.NotifierFactory)

	// Forecasts
	t.Register(adapter.CategoryForecastProvider, adapter.TypeDummySolar, dummy.ForecastProviderFactory)
	t.Register(adapter.CategoryForecastProvider, adapter.TypeHomeAssistantAPI, homeassistant.ForecastProviderFactory)
	t.Register(adapter.CategoryHomeForecastProvider, adapter.TypeDummy, dummy.HomeForecastProviderFactory)

	// Performance trackers
	t.Register(adapter.CategoryPerformanceTracker, adapter.TypeDummy, dummy.PerformanceTrackerFactory)
	t.Register(adapter.CategoryPerformanceTracker, adapter.TypeInfluxDB, influx.TrackerFactory)

	// External services
	t.Register(adapter.CategoryExternalService, adapter.TypeHomeAssistantAPI, homeassistant.ServiceFactory)
	t.Register(adapter.CategoryExternalService, adapter.TypeMQTTBroker, broker.ServiceFactory)
	t.Register(adapter.CategoryExternalService, adapter.TypeInfluxDB, influx.ServiceFactory)
}
