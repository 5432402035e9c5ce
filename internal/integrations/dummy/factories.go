package dummy

import (
	"context"
	"fmt"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
)

// EnergyMonitorFactory builds a SolarMonitor (energy_monitor/dummy_solar).
func EnergyMonitorFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf(req, adapter.DefaultDummySolarMonitorConfig)
	if err != nil {
		return nil, err
	}
	if req.EnergySource == nil {
		return nil, fmt.Errorf("%w: simulated monitor needs an energy source", adapter.ErrUnresolvedDependency)
	}
	return NewSolarMonitor(cfg, req.EnergySource), nil
}

// MinerControllerFactory builds a MinerController (miner_controller/dummy).
func MinerControllerFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf(req, adapter.DefaultDummyMinerConfig)
	if err != nil {
		return nil, err
	}
	if req.Miner == nil {
		return nil, fmt.Errorf("%w: simulated controller needs a miner", adapter.ErrUnresolvedDependency)
	}
	return NewMinerController(cfg, req.Miner, req.Logger), nil
}

// NotifierFactory builds a logging Notifier (notifier/dummy).
func NotifierFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf(req, func() *adapter.DummyNotifierConfig { return &adapter.DummyNotifierConfig{} })
	if err != nil {
		return nil, err
	}
	return NewNotifier(cfg, req.Logger), nil
}

// ForecastProviderFactory builds a SolarForecast (forecast_provider/dummy_solar).
func ForecastProviderFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf(req, adapter.DefaultDummySolarForecastConfig)
	if err != nil {
		return nil, err
	}
	if cfg.CapacityKWp == 0 && (req.EnergySource == nil || req.EnergySource.NominalPowerMax <= 0) {
		return nil, fmt.Errorf("%w: capacity_kwp is unset and the energy source has no nominal power", adapter.ErrInvalidPayload)
	}
	return NewSolarForecast(cfg, req.EnergySource, req.Logger), nil
}

// HomeForecastProviderFactory builds a HomeLoadForecast (home_forecast_provider/dummy).
func HomeForecastProviderFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf(req, adapter.DefaultDummyHomeForecastConfig)
	if err != nil {
		return nil, err
	}
	return NewHomeLoadForecast(cfg), nil
}

// PerformanceTrackerFactory builds a PerformanceTracker (performance_tracker/dummy).
func PerformanceTrackerFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf(req, func() *adapter.DummyTrackerConfig { return &adapter.DummyTrackerConfig{} })
	if err != nil {
		return nil, err
	}
	if cfg.Message != "" && req.Logger != nil {
		req.Logger.Info("simulated performance tracker", "message", cfg.Message)
	}
	return NewPerformanceTracker(), nil
}
