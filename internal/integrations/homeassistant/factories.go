package homeassistant

import (
	"context"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
)

// ServiceFactory builds and connects a Service (external_service/home_assistant_api).
func ServiceFactory(ctx context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf[*adapter.HomeAssistantServiceConfig](req, nil)
	if err != nil {
		return nil, err
	}
	svc := NewService(cfg, req.Logger)
	if err := svc.Connect(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// EnergyMonitorFactory builds an EnergyMonitor (energy_monitor/home_assistant_api).
func EnergyMonitorFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf[*adapter.HomeAssistantMonitorConfig](req, nil)
	if err != nil {
		return nil, err
	}
	api, err := adapter.ServiceOf[API](req)
	if err != nil {
		return nil, err
	}
	return NewEnergyMonitor(api, cfg, req.EnergySource, req.Logger), nil
}

// ForecastProviderFactory builds a ForecastProvider (forecast_provider/home_assistant_api).
func ForecastProviderFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf[*adapter.HomeAssistantForecastConfig](req, nil)
	if err != nil {
		return nil, err
	}
	api, err := adapter.ServiceOf[API](req)
	if err != nil {
		return nil, err
	}
	return NewForecastProvider(api, cfg, req.Logger), nil
}

// SocketControllerFactory builds a SocketController
// (miner_controller/generic_socket_home_assistant_api).
func SocketControllerFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf[*adapter.SocketMinerConfig](req, nil)
	if err != nil {
		return nil, err
	}
	api, err := adapter.ServiceOf[API](req)
	if err != nil {
		return nil, err
	}
	return NewSocketController(api, cfg, req.Logger), nil
}
