package broker

import (
	"context"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
)

// ServiceFactory builds and connects a Service (external_service/mqtt_broker).
func ServiceFactory(ctx context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf[*adapter.MQTTBrokerConfig](req, nil)
	if err != nil {
		return nil, err
	}
	svc := NewService(cfg, req.Logger)
	if err := svc.Connect(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// EnergyMonitorFactory builds an EnergyMonitor
// (energy_monitor/home_assistant_mqtt).
func EnergyMonitorFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf[*adapter.MQTTMonitorConfig](req, nil)
	if err != nil {
		return nil, err
	}
	b, err := adapter.ServiceOf[Broker](req)
	if err != nil {
		return nil, err
	}
	m, err := NewEnergyMonitor(b, cfg, req.EnergySource, req.Logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NotifierFactory builds a Notifier (notifier/mqtt).
func NotifierFactory(_ context.Context, req adapter.BuildRequest) (any, error) {
	cfg, err := adapter.PayloadOf[*adapter.MQTTNotifierConfig](req, nil)
	if err != nil {
		return nil, err
	}
	b, err := adapter.ServiceOf[Broker](req)
	if err != nil {
		return nil, err
	}
	return NewNotifier(b, cfg), nil
}
